package domain

import (
	"context"
	"time"
)

// MaxSpacesPerEvent is the upper bound on spaces an event may offer.
const MaxSpacesPerEvent = 6

// Event represents a scheduled occasion offering a fixed set of spaces.
// swagger:model Event
type Event struct {
	ID         string    `json:"id"`
	City       string    `json:"city"`
	DateTime   time.Time `json:"date_time"`
	Cancelled  bool      `json:"cancelled"`
	IsUpcoming bool      `json:"is_upcoming"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewEvent returns a new Event. IsUpcoming is fixed here and never re-evaluated.
func NewEvent(city string, dateTime, now time.Time) *Event {
	return &Event{
		City:       city,
		DateTime:   dateTime,
		IsUpcoming: dateTime.After(now),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// SelectDisplayedEvent picks the event to show from the earliest active upcoming
// event and the earliest cancelled future event. Either may be nil.
// At equal date-time the active event wins; otherwise the earlier one does.
func SelectDisplayedEvent(active, cancelled *Event) (*Event, error) {
	switch {
	case active != nil && cancelled != nil:
		if cancelled.DateTime.Before(active.DateTime) {
			return cancelled, nil
		}
		return active, nil
	case active != nil:
		return active, nil
	case cancelled != nil:
		return cancelled, nil
	}
	return nil, ErrNoUpcomingEvent
}

// EventView is the complete projection of an event and its spaces.
// swagger:model EventView
type EventView struct {
	*Event
	Spaces               []SpaceView `json:"spaces"`
	AvailableSpacesCount int         `json:"available_spaces_count"`
	TotalSpacesCount     int         `json:"total_spaces_count"`
}

// NewEventView builds the projection from an event and its spaces.
func NewEventView(e *Event, spaces []*Space) *EventView {
	v := &EventView{
		Event:            e,
		Spaces:           make([]SpaceView, 0, len(spaces)),
		TotalSpacesCount: len(spaces),
	}
	for _, s := range spaces {
		sv := NewSpaceView(s)
		if sv.Available {
			v.AvailableSpacesCount++
		}
		v.Spaces = append(v.Spaces, sv)
	}
	return v
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	Exists(ctx context.Context, id string) (bool, error)
	MarkCancelled(ctx context.Context, id string) (*Event, error)
	// FirstActiveUpcomingAfter returns the earliest non-cancelled, upcoming event after now, or nil.
	FirstActiveUpcomingAfter(ctx context.Context, now time.Time) (*Event, error)
	// FirstCancelledAfter returns the earliest cancelled event after now, or nil.
	FirstCancelledAfter(ctx context.Context, now time.Time) (*Event, error)
	ListByDateDesc(ctx context.Context) ([]*Event, error)
}

// EventService defines event lifecycle and selection.
type EventService interface {
	CreateEvent(ctx context.Context, city string, dateTime time.Time, templateIDs []string) (*EventView, error)
	CancelEvent(ctx context.Context, eventID string) (*EventView, error)
	ResolveDisplayedEvent(ctx context.Context, now time.Time) (*EventView, error)
	ListEvents(ctx context.Context) ([]*EventView, error)
	GetEvent(ctx context.Context, eventID string) (*EventView, error)
}
