package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"velvetden/internal/domain"
)

const userColumns = `id, email, password_hash, first_name, last_name, status, is_admin, verification_image_path, age, location, height, size, admin_comments, created_at, updated_at`

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

// userScan collects the nullable columns of a users row.
type userScan struct {
	u                                            domain.User
	status                                       string
	image, location, height, size, adminComments sql.NullString
	age                                          sql.NullInt64
}

func (s *userScan) dest() []any {
	return []any{
		&s.u.ID, &s.u.Email, &s.u.PasswordHash, &s.u.FirstName, &s.u.LastName, &s.status, &s.u.IsAdmin,
		&s.image, &s.age, &s.location, &s.height, &s.size, &s.adminComments, &s.u.CreatedAt, &s.u.UpdatedAt,
	}
}

func (s *userScan) user() *domain.User {
	u := s.u
	u.Status = domain.UserStatus(s.status)
	u.VerificationImagePath = nullString(s.image)
	u.Location = nullString(s.location)
	u.Height = nullString(s.height)
	u.Size = nullString(s.size)
	u.AdminComments = nullString(s.adminComments)
	if s.age.Valid {
		age := int(s.age.Int64)
		u.Age = &age
	}
	return &u
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func scanUser(row rowScanner) (*domain.User, error) {
	var s userScan
	if err := row.Scan(s.dest()...); err != nil {
		return nil, err
	}
	return s.user(), nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, status, is_admin,
			verification_image_path, age, location, height, size, admin_comments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, string(u.Status), u.IsAdmin,
		u.VerificationImagePath, u.Age, u.Location, u.Height, u.Size, u.AdminComments, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(conn(ctx, r.DB).QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := conn(ctx, r.DB).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// UpdateProfile sets only the columns p carries and returns the updated row.
// Identity, status and image columns are never written here.
func (r *userRepository) UpdateProfile(ctx context.Context, id string, p domain.ProfileUpdate) (*domain.User, error) {
	var (
		sets []string
		args = []any{id}
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	switch {
	case p.ClearAge:
		set("age", nil)
	case p.Age != nil:
		set("age", *p.Age)
	}
	if p.Location != nil {
		set("location", *p.Location)
	}
	if p.Height != nil {
		set("height", *p.Height)
	}
	if p.Size != nil {
		set("size", *p.Size)
	}
	if p.AdminComments != nil {
		set("admin_comments", *p.AdminComments)
	}
	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + userColumns
	u, err := scanUser(conn(ctx, r.DB).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) UpdateStatus(ctx context.Context, id string, status domain.UserStatus) (*domain.User, error) {
	query := `
		UPDATE users SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	u, err := scanUser(conn(ctx, r.DB).QueryRowContext(ctx, query, id, string(status)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) ReplacePictureIfRequested(ctx context.Context, id, imagePath string) (bool, error) {
	query := `
		UPDATE users SET verification_image_path = $2, status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query,
		id, imagePath, string(domain.StatusInReview), string(domain.StatusPictureRequested),
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func userWhere(filter domain.UserFilter) (string, []any) {
	if filter.Status == nil {
		return "", nil
	}
	return "WHERE u.status = $1", []any{string(*filter.Status)}
}

func (r *userRepository) List(ctx context.Context, filter domain.UserFilter, page domain.PaginationParams) ([]*domain.UserWithBookings, error) {
	where, args := userWhere(filter)
	var b strings.Builder
	b.WriteString(`SELECT u.` + strings.ReplaceAll(userColumns, ", ", ", u.") + `,
		(SELECT COUNT(*) FROM spaces s WHERE s.user_id = u.id)
		FROM users u `)
	b.WriteString(where)
	b.WriteString(` ORDER BY u.created_at DESC`)
	if page.Limit() > 0 {
		fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, page.Limit(), page.Offset())
	}
	rows, err := conn(ctx, r.DB).QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]*domain.UserWithBookings, 0)
	for rows.Next() {
		var s userScan
		var booked int
		if err := rows.Scan(append(s.dest(), &booked)...); err != nil {
			return nil, err
		}
		users = append(users, &domain.UserWithBookings{User: s.user(), BookedSpacesCount: booked})
	}
	return users, rows.Err()
}

func (r *userRepository) Count(ctx context.Context, filter domain.UserFilter) (int, error) {
	where, args := userWhere(filter)
	var n int
	err := conn(ctx, r.DB).QueryRowContext(ctx, `SELECT COUNT(*) FROM users u `+where, args...).Scan(&n)
	return n, err
}
