package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"velvetden/internal/domain"
)

const defaultAdminCreatedPassword = "temp123"

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type userService struct {
	userRepo    domain.UserRepository
	spaceRepo   domain.SpaceRepository
	hasher      domain.PasswordHasher
	tokenIssuer domain.TokenIssuer
	tokenExpiry time.Duration
	limiter     domain.LoginLimiter
	fileStore   domain.FileStore
	notifier    domain.Notifier
	now         func() time.Time
}

// NewUserService creates a UserService with the given repositories and auth ports.
// limiter may be nil to disable login throttling.
func NewUserService(userRepo domain.UserRepository, spaceRepo domain.SpaceRepository, hasher domain.PasswordHasher, tokenIssuer domain.TokenIssuer, tokenExpiry time.Duration, limiter domain.LoginLimiter, fileStore domain.FileStore, notifier domain.Notifier) domain.UserService {
	return &userService{
		userRepo:    userRepo,
		spaceRepo:   spaceRepo,
		hasher:      hasher,
		tokenIssuer: tokenIssuer,
		tokenExpiry: tokenExpiry,
		limiter:     limiter,
		fileStore:   fileStore,
		notifier:    notifier,
		now:         time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (s *userService) Register(ctx context.Context, email, password, firstName, lastName string, image *domain.Upload) (*domain.User, error) {
	email = normalizeEmail(email)
	if !emailRegexp.MatchString(email) {
		return nil, domain.InvalidArgument("invalid email format")
	}
	if password == "" {
		return nil, domain.InvalidArgument("password is required")
	}
	if image == nil || image.Body == nil {
		return nil, domain.InvalidArgument("verification image is required")
	}
	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, domain.ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	path, err := s.fileStore.Save(ctx, image.Filename, image.ContentType, image.Body)
	if err != nil {
		return nil, fmt.Errorf("store verification image: %w", err)
	}

	user := domain.NewUser(email, hash, strings.TrimSpace(firstName), strings.TrimSpace(lastName), s.now())
	user.VerificationImagePath = &path
	if err := s.userRepo.Create(ctx, user); err != nil {
		_ = s.fileStore.Delete(ctx, path)
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.notifier.Notify(domain.Notification{Kind: domain.NotificationRegistered, User: *user})
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = normalizeEmail(email)
	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, email)
		if err != nil {
			return "", nil, fmt.Errorf("check login attempts: %w", err)
		}
		if !allowed {
			return "", nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokenIssuer.Issue(user.ID, user.Email, user.Roles(), s.tokenExpiry)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	if s.limiter != nil {
		_ = s.limiter.Reset(ctx, email)
	}
	return token, user, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !domain.ValidID(id) {
		return nil, domain.ErrUserNotFound
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateByAdmin creates an account on behalf of an admin. A missing email becomes a
// unique placeholder address and a missing password the fixed default.
func (s *userService) CreateByAdmin(ctx context.Context, in domain.AdminCreateUserInput) (*domain.User, error) {
	now := s.now()
	email := normalizeEmail(in.Email)
	if email == "" {
		email = fmt.Sprintf("user%d%d@temp.local", now.UnixMilli(), rand.IntN(1000))
	} else if !emailRegexp.MatchString(email) {
		return nil, domain.InvalidArgument("invalid email format")
	}
	password := in.Password
	if strings.TrimSpace(password) == "" {
		password = defaultAdminCreatedPassword
	}
	status := in.Status
	if status == "" {
		status = domain.StatusInReview
	}
	if _, ok := domain.ParseUserStatus(string(status)); !ok {
		return nil, domain.InvalidArgument("invalid status")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := domain.NewUser(email, hash, strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName), now)
	user.Status = status
	in.Profile.Apply(user)

	if in.Image != nil && in.Image.Body != nil {
		path, err := s.fileStore.Save(ctx, in.Image.Filename, in.Image.ContentType, in.Image.Body)
		if err != nil {
			return nil, fmt.Errorf("store verification image: %w", err)
		}
		user.VerificationImagePath = &path
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if user.VerificationImagePath != nil {
			_ = s.fileStore.Delete(ctx, *user.VerificationImagePath)
		}
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.UserWithBookings, error) {
	if update.Age != nil && *update.Age < 0 {
		return nil, domain.InvalidArgument("age must not be negative")
	}
	if !domain.ValidID(userID) {
		return nil, domain.ErrUserNotFound
	}
	user, err := s.userRepo.UpdateProfile(ctx, userID, update)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	booked, err := s.spaceRepo.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}
	return &domain.UserWithBookings{User: user, BookedSpacesCount: booked}, nil
}

func (s *userService) List(ctx context.Context, filter domain.UserFilter, page domain.PaginationParams) ([]*domain.UserWithBookings, int, error) {
	users, err := s.userRepo.List(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	total, err := s.userRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}
