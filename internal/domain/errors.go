package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services wraps exactly one of these,
// so the delivery layer can map it with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
)

// Booking errors.
var (
	ErrNotApproved        = fmt.Errorf("%w: only approved users can book spaces", ErrForbidden)
	ErrOneBookingPerEvent = fmt.Errorf("%w: you can only book one space per event", ErrConflict)
	ErrUserAlreadyBooked  = fmt.Errorf("%w: user already has a booking for this event", ErrConflict)
	ErrAlreadyBooked      = fmt.Errorf("%w: space is already booked", ErrConflict)
	ErrNotBooked          = fmt.Errorf("%w: space is not currently booked", ErrConflict)
	ErrNotOwner           = fmt.Errorf("%w: space is not booked by this user", ErrForbidden)
	ErrSpaceNotFound      = fmt.Errorf("%w: space not found", ErrNotFound)
)

// Event and catalog errors.
var (
	ErrEventNotFound    = fmt.Errorf("%w: event not found", ErrNotFound)
	ErrNoUpcomingEvent  = fmt.Errorf("%w: no upcoming event found", ErrNotFound)
	ErrTemplateNotFound = fmt.Errorf("%w: space template not found", ErrNotFound)
	ErrUnknownTemplate  = fmt.Errorf("%w: one or more space templates not found", ErrInvalidArgument)
)

// User and review errors.
var (
	ErrUserNotFound        = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrDuplicateEmail      = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrTooManyAttempts     = errors.New("too many login attempts")
	ErrPictureNotRequested = fmt.Errorf("%w: a new picture was not requested for this user", ErrInvalidState)
)

// InvalidArgument returns an error of kind ErrInvalidArgument with the given message.
func InvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}
