package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"velvetden/internal/domain"
)

type bookingService struct {
	tx        domain.Transactor
	spaceRepo domain.SpaceRepository
	eventRepo domain.EventRepository
}

// NewBookingService creates a BookingService. Every booking runs inside one transaction of tx.
func NewBookingService(tx domain.Transactor, spaceRepo domain.SpaceRepository, eventRepo domain.EventRepository) domain.BookingService {
	return &bookingService{
		tx:        tx,
		spaceRepo: spaceRepo,
		eventRepo: eventRepo,
	}
}

func (s *bookingService) BookSpace(ctx context.Context, eventID, spaceID string, actor *domain.User) (*domain.SpaceView, error) {
	if actor == nil || !actor.IsApproved() {
		return nil, domain.ErrNotApproved
	}
	return s.book(ctx, eventID, spaceID, actor.ID, domain.ErrOneBookingPerEvent)
}

func (s *bookingService) BookSpaceForUser(ctx context.Context, eventID, spaceID string, target *domain.User) (*domain.SpaceView, error) {
	if target == nil {
		return nil, domain.ErrUserNotFound
	}
	return s.book(ctx, eventID, spaceID, target.ID, domain.ErrUserAlreadyBooked)
}

// book assigns the space to userID. errHasBooking is reported when the user already
// holds a space in the event, whether seen up front or through the unique index.
func (s *bookingService) book(ctx context.Context, eventID, spaceID, userID string, errHasBooking error) (*domain.SpaceView, error) {
	eventID = strings.TrimSpace(eventID)
	spaceID = strings.TrimSpace(spaceID)
	if eventID == "" || spaceID == "" {
		return nil, domain.InvalidArgument("event id and space id are required")
	}
	if !domain.ValidID(eventID) {
		// No booking can be held in an event that cannot exist.
		return nil, domain.ErrEventNotFound
	}

	var booked *domain.Space
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		held, err := s.spaceRepo.ExistsForUserInEvent(ctx, eventID, userID)
		if err != nil {
			return fmt.Errorf("check existing booking: %w", err)
		}
		if held {
			return errHasBooking
		}
		exists, err := s.eventRepo.Exists(ctx, eventID)
		if err != nil {
			return fmt.Errorf("check event: %w", err)
		}
		if !exists {
			return domain.ErrEventNotFound
		}
		if !domain.ValidID(spaceID) {
			return domain.ErrSpaceNotFound
		}
		space, err := s.spaceRepo.GetForUpdate(ctx, eventID, spaceID)
		if err != nil {
			return err
		}
		if !space.IsAvailable() {
			return domain.ErrAlreadyBooked
		}
		ok, err := s.spaceRepo.Assign(ctx, space.ID, userID)
		if err != nil {
			if errors.Is(err, domain.ErrOneBookingPerEvent) {
				return errHasBooking
			}
			return fmt.Errorf("assign space: %w", err)
		}
		if !ok {
			return domain.ErrAlreadyBooked
		}
		booked, err = s.spaceRepo.GetByID(ctx, space.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	view := domain.NewSpaceView(booked)
	return &view, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, spaceID string, actor *domain.User) error {
	spaceID = strings.TrimSpace(spaceID)
	if spaceID == "" {
		return domain.InvalidArgument("space id is required")
	}
	if actor == nil {
		return domain.ErrNotOwner
	}
	if !domain.ValidID(spaceID) {
		return domain.ErrSpaceNotFound
	}
	released, err := s.spaceRepo.ReleaseIfHeldBy(ctx, spaceID, actor.ID)
	if err != nil {
		return fmt.Errorf("release space: %w", err)
	}
	if released {
		return nil
	}
	space, err := s.spaceRepo.GetByID(ctx, spaceID)
	if err != nil {
		return err
	}
	if space.IsAvailable() {
		return domain.ErrNotBooked
	}
	return domain.ErrNotOwner
}
