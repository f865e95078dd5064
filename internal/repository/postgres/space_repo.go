package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"velvetden/internal/domain"
)

const spaceSelect = `
		SELECT s.id, s.event_id, s.template_id, s.user_id, t.name, t.color, u.email
		FROM spaces s
		JOIN space_templates t ON t.id = s.template_id
		LEFT JOIN users u ON u.id = s.user_id
	`

type spaceRepository struct {
	DB *sql.DB
}

func NewSpaceRepository(db *sql.DB) domain.SpaceRepository {
	return &spaceRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpace(row rowScanner) (*domain.Space, error) {
	s := &domain.Space{}
	var userID, bookedBy sql.NullString
	var color string
	if err := row.Scan(&s.ID, &s.EventID, &s.TemplateID, &userID, &s.Name, &color, &bookedBy); err != nil {
		return nil, err
	}
	s.Color = domain.SpaceColor(color)
	if userID.Valid {
		s.UserID = &userID.String
	}
	if bookedBy.Valid {
		s.BookedBy = &bookedBy.String
	}
	return s, nil
}

func (r *spaceRepository) CreateBatch(ctx context.Context, spaces []*domain.Space) error {
	query := `
		INSERT INTO spaces (event_id, template_id, position)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	q := conn(ctx, r.DB)
	for i, s := range spaces {
		if err := q.QueryRowContext(ctx, query, s.EventID, s.TemplateID, i).Scan(&s.ID); err != nil {
			return fmt.Errorf("insert space %d: %w", i, err)
		}
	}
	return nil
}

func (r *spaceRepository) GetByID(ctx context.Context, id string) (*domain.Space, error) {
	query := spaceSelect + `WHERE s.id = $1`
	s, err := scanSpace(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSpaceNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *spaceRepository) GetForUpdate(ctx context.Context, eventID, spaceID string) (*domain.Space, error) {
	query := spaceSelect + `WHERE s.event_id = $1 AND s.id = $2 FOR UPDATE OF s`
	s, err := scanSpace(conn(ctx, r.DB).QueryRowContext(ctx, query, eventID, spaceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSpaceNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *spaceRepository) ExistsForUserInEvent(ctx context.Context, eventID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM spaces WHERE event_id = $1 AND user_id = $2)`
	var exists bool
	if err := conn(ctx, r.DB).QueryRowContext(ctx, query, eventID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *spaceRepository) Assign(ctx context.Context, spaceID, userID string) (bool, error) {
	query := `UPDATE spaces SET user_id = $2 WHERE id = $1 AND user_id IS NULL`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, spaceID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return false, domain.ErrOneBookingPerEvent
		}
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *spaceRepository) ReleaseIfHeldBy(ctx context.Context, spaceID, userID string) (bool, error) {
	query := `UPDATE spaces SET user_id = NULL WHERE id = $1 AND user_id = $2`
	result, err := conn(ctx, r.DB).ExecContext(ctx, query, spaceID, userID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *spaceRepository) ListByEventIDs(ctx context.Context, eventIDs []string) (map[string][]*domain.Space, error) {
	out := make(map[string][]*domain.Space, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}
	query := spaceSelect + `WHERE s.event_id = ANY($1::uuid[]) ORDER BY s.event_id, s.position`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, pq.Array(eventIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, err
		}
		out[s.EventID] = append(out[s.EventID], s)
	}
	return out, rows.Err()
}

func (r *spaceRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := conn(ctx, r.DB).QueryRowContext(ctx, `SELECT COUNT(*) FROM spaces WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}
