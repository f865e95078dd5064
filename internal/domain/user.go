package domain

import (
	"context"
	"io"
	"strings"
	"time"
)

// UserStatus is the position of a user in the review workflow.
type UserStatus string

const (
	StatusInReview         UserStatus = "IN_REVIEW"
	StatusApproved         UserStatus = "APPROVED"
	StatusRejected         UserStatus = "REJECTED"
	StatusPictureRequested UserStatus = "PICTURE_REQUESTED"
)

// ParseUserStatus parses a status name case-insensitively.
func ParseUserStatus(s string) (UserStatus, bool) {
	switch st := UserStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusInReview, StatusApproved, StatusRejected, StatusPictureRequested:
		return st, true
	}
	return "", false
}

// Role codes carried in issued tokens.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a registered user
// swagger:model User
type User struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	PasswordHash          string     `json:"-"`
	FirstName             string     `json:"first_name"`
	LastName              string     `json:"last_name"`
	Status                UserStatus `json:"status"`
	IsAdmin               bool       `json:"is_admin"`
	VerificationImagePath *string    `json:"verification_image_path"`
	Age                   *int       `json:"age"`
	Location              *string    `json:"location"`
	Height                *string    `json:"height"`
	Size                  *string    `json:"size"`
	AdminComments         *string    `json:"admin_comments"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// NewUser returns a new User in review. ID is set by the repository on create.
func NewUser(email, passwordHash, firstName, lastName string, now time.Time) *User {
	return &User{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		Status:       StatusInReview,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsApproved reports whether the user may use self-service booking.
func (u *User) IsApproved() bool {
	return u.Status == StatusApproved
}

// Roles returns the role codes for the user's token.
func (u *User) Roles() []string {
	if u.IsAdmin {
		return []string{RoleAdmin, RoleUser}
	}
	return []string{RoleUser}
}

// UserWithBookings is the admin listing row: a user plus the number of spaces they hold.
// swagger:model UserWithBookings
type UserWithBookings struct {
	*User
	BookedSpacesCount int `json:"booked_spaces_count"`
}

// ProfileUpdate holds admin-editable profile fields. Nil pointers leave a field unchanged;
// the Clear* flags set it to null.
type ProfileUpdate struct {
	Age           *int
	ClearAge      bool
	Location      *string
	Height        *string
	Size          *string
	AdminComments *string
}

// Apply copies the update onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.ClearAge {
		u.Age = nil
	} else if p.Age != nil {
		age := *p.Age
		u.Age = &age
	}
	if p.Location != nil {
		u.Location = p.Location
	}
	if p.Height != nil {
		u.Height = p.Height
	}
	if p.Size != nil {
		u.Size = p.Size
	}
	if p.AdminComments != nil {
		u.AdminComments = p.AdminComments
	}
}

// AdminCreateUserInput is the input for an admin-created account. Every field is optional.
type AdminCreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Status    UserStatus
	Image     *Upload
	Profile   ProfileUpdate
}

// Upload is an uploaded file handed to the FileStore.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Principal is the identity resolved from a bearer token.
type Principal struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole reports whether the principal carries the role code.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated principal.
type TokenVerifier interface {
	Verify(token string) (*Principal, error)
}

// LoginLimiter throttles login attempts per email.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Status *UserStatus
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// UpdateProfile writes only the fields p carries. Missing users give ErrUserNotFound.
	UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (*User, error)
	UpdateStatus(ctx context.Context, id string, status UserStatus) (*User, error)
	// ReplacePictureIfRequested sets the image and moves the user back to IN_REVIEW,
	// only while the status is PICTURE_REQUESTED. Returns false when no row matched.
	ReplacePictureIfRequested(ctx context.Context, id, imagePath string) (bool, error)
	List(ctx context.Context, filter UserFilter, page PaginationParams) ([]*UserWithBookings, error)
	Count(ctx context.Context, filter UserFilter) (int, error)
}

// UserService defines registration, login and account administration.
type UserService interface {
	Register(ctx context.Context, email, password, firstName, lastName string, image *Upload) (*User, error)
	Login(ctx context.Context, email, password string) (token string, user *User, err error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	CreateByAdmin(ctx context.Context, in AdminCreateUserInput) (*User, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*UserWithBookings, error)
	List(ctx context.Context, filter UserFilter, page PaginationParams) ([]*UserWithBookings, int, error)
}

// ReviewService drives the review workflow state machine.
type ReviewService interface {
	Approve(ctx context.Context, userID string) (*User, error)
	Reject(ctx context.Context, userID string) (*User, error)
	RequestPicture(ctx context.Context, userID string) (*User, error)
	SubmitPicture(ctx context.Context, userID string, image *Upload) (*User, error)
}
