package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"velvetden/internal/domain"
)

const eventColumns = `id, city, date_time, cancelled, is_upcoming, created_at, updated_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	err := row.Scan(&e.ID, &e.City, &e.DateTime, &e.Cancelled, &e.IsUpcoming, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (city, date_time, cancelled, is_upcoming, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return conn(ctx, r.DB).QueryRowContext(ctx, query, e.City, e.DateTime, e.Cancelled, e.IsUpcoming, e.CreatedAt, e.UpdatedAt).
		Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := conn(ctx, r.DB).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *eventRepository) MarkCancelled(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		UPDATE events SET cancelled = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + eventColumns
	e, err := scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) FirstActiveUpcomingAfter(ctx context.Context, now time.Time) (*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE is_upcoming = TRUE AND cancelled = FALSE AND date_time > $1
		ORDER BY date_time ASC
		LIMIT 1
	`
	return r.first(ctx, query, now)
}

// FirstCancelledAfter ignores is_upcoming: a cancelled event stays visible until its date passes.
func (r *eventRepository) FirstCancelledAfter(ctx context.Context, now time.Time) (*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE cancelled = TRUE AND date_time > $1
		ORDER BY date_time ASC
		LIMIT 1
	`
	return r.first(ctx, query, now)
}

func (r *eventRepository) first(ctx context.Context, query string, now time.Time) (*domain.Event, error) {
	e, err := scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) ListByDateDesc(ctx context.Context) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY date_time DESC`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
