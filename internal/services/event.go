package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"velvetden/internal/domain"
)

type eventService struct {
	tx           domain.Transactor
	eventRepo    domain.EventRepository
	spaceRepo    domain.SpaceRepository
	templates    domain.SpaceTemplateService
	now          func() time.Time
}

// NewEventService creates an EventService with the given repositories, template
// catalog and clock. A nil clock defaults to time.Now.
func NewEventService(tx domain.Transactor, eventRepo domain.EventRepository, spaceRepo domain.SpaceRepository, templates domain.SpaceTemplateService, now func() time.Time) domain.EventService {
	if now == nil {
		now = time.Now
	}
	return &eventService{
		tx:           tx,
		eventRepo:    eventRepo,
		spaceRepo:    spaceRepo,
		templates:    templates,
		now:          now,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, city string, dateTime time.Time, templateIDs []string) (*domain.EventView, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, domain.InvalidArgument("city is required")
	}
	if dateTime.IsZero() {
		return nil, domain.InvalidArgument("date_time is required")
	}
	if len(templateIDs) == 0 {
		return nil, domain.InvalidArgument("at least one space template must be selected")
	}
	if len(templateIDs) > domain.MaxSpacesPerEvent {
		return nil, domain.InvalidArgument(fmt.Sprintf("maximum %d spaces allowed per event", domain.MaxSpacesPerEvent))
	}
	seen := make(map[string]struct{}, len(templateIDs))
	for _, id := range templateIDs {
		if _, dup := seen[id]; dup {
			return nil, domain.InvalidArgument("space templates must not repeat")
		}
		seen[id] = struct{}{}
	}

	var view *domain.EventView
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		templates, err := s.templates.GetTemplatesByIDs(ctx, templateIDs)
		if err != nil {
			return err
		}
		byID := make(map[string]*domain.SpaceTemplate, len(templates))
		for _, t := range templates {
			byID[t.ID] = t
		}

		event := domain.NewEvent(city, dateTime, s.now())
		if err := s.eventRepo.Create(ctx, event); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		spaces := make([]*domain.Space, 0, len(templateIDs))
		for _, id := range templateIDs {
			t, ok := byID[id]
			if !ok {
				return domain.ErrUnknownTemplate
			}
			spaces = append(spaces, domain.NewSpace(event.ID, t))
		}
		if err := s.spaceRepo.CreateBatch(ctx, spaces); err != nil {
			return fmt.Errorf("create spaces: %w", err)
		}
		view = domain.NewEventView(event, spaces)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *eventService) CancelEvent(ctx context.Context, eventID string) (*domain.EventView, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, domain.InvalidArgument("event id is required")
	}
	if !domain.ValidID(eventID) {
		return nil, domain.ErrEventNotFound
	}
	event, err := s.eventRepo.MarkCancelled(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, event)
}

func (s *eventService) ResolveDisplayedEvent(ctx context.Context, now time.Time) (*domain.EventView, error) {
	active, err := s.eventRepo.FirstActiveUpcomingAfter(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("find upcoming event: %w", err)
	}
	cancelled, err := s.eventRepo.FirstCancelledAfter(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("find cancelled event: %w", err)
	}
	event, err := domain.SelectDisplayedEvent(active, cancelled)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, event)
}

func (s *eventService) ListEvents(ctx context.Context) ([]*domain.EventView, error) {
	events, err := s.eventRepo.ListByDateDesc(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	spaces, err := s.spaceRepo.ListByEventIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	views := make([]*domain.EventView, len(events))
	for i, e := range events {
		views[i] = domain.NewEventView(e, spaces[e.ID])
	}
	return views, nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.EventView, error) {
	if !domain.ValidID(eventID) {
		return nil, domain.ErrEventNotFound
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, event)
}

func (s *eventService) view(ctx context.Context, event *domain.Event) (*domain.EventView, error) {
	spaces, err := s.spaceRepo.ListByEventIDs(ctx, []string{event.ID})
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	return domain.NewEventView(event, spaces[event.ID]), nil
}
