package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"velvetden/internal/domain"
)

type reviewService struct {
	userRepo  domain.UserRepository
	fileStore domain.FileStore
	notifier  domain.Notifier
	logger    *slog.Logger
}

// NewReviewService creates a ReviewService. Notifications are handed to notifier after each
// committed transition.
func NewReviewService(userRepo domain.UserRepository, fileStore domain.FileStore, notifier domain.Notifier, logger *slog.Logger) domain.ReviewService {
	if logger == nil {
		logger = slog.Default()
	}
	return &reviewService{
		userRepo:  userRepo,
		fileStore: fileStore,
		notifier:  notifier,
		logger:    logger,
	}
}

func (s *reviewService) Approve(ctx context.Context, userID string) (*domain.User, error) {
	return s.transition(ctx, userID, domain.StatusApproved)
}

func (s *reviewService) Reject(ctx context.Context, userID string) (*domain.User, error) {
	return s.transition(ctx, userID, domain.StatusRejected)
}

func (s *reviewService) RequestPicture(ctx context.Context, userID string) (*domain.User, error) {
	return s.transition(ctx, userID, domain.StatusPictureRequested)
}

// transition overwrites the status regardless of the current one.
func (s *reviewService) transition(ctx context.Context, userID string, status domain.UserStatus) (*domain.User, error) {
	if userID == "" {
		return nil, domain.InvalidArgument("user id is required")
	}
	if !domain.ValidID(userID) {
		return nil, domain.ErrUserNotFound
	}
	user, err := s.userRepo.UpdateStatus(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(domain.Notification{Kind: domain.NotificationReviewDecision, User: *user})
	return user, nil
}

func (s *reviewService) SubmitPicture(ctx context.Context, userID string, image *domain.Upload) (*domain.User, error) {
	if image == nil || image.Body == nil {
		return nil, domain.InvalidArgument("image is required")
	}
	if !domain.ValidID(userID) {
		return nil, domain.ErrUserNotFound
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != domain.StatusPictureRequested {
		return nil, domain.ErrPictureNotRequested
	}

	path, err := s.fileStore.Save(ctx, image.Filename, image.ContentType, image.Body)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	replaced, err := s.userRepo.ReplacePictureIfRequested(ctx, userID, path)
	if err != nil || !replaced {
		s.discard(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("replace image: %w", err)
		}
		// The status moved between the read and the update.
		if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
			return nil, err
		}
		return nil, domain.ErrPictureNotRequested
	}

	user, err = s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("reload user: %w", err)
	}
	s.notifier.Notify(domain.Notification{Kind: domain.NotificationPictureReplaced, User: *user})
	return user, nil
}

func (s *reviewService) discard(ctx context.Context, path string) {
	if err := s.fileStore.Delete(ctx, path); err != nil {
		s.logger.WarnContext(ctx, "failed to delete orphaned image", "path", path, "err", err)
	}
}
