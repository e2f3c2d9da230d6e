package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/eventsphere/eventsphere/internal/backend"
)

type eventRow struct {
	ID        int64        `db:"id"`
	EventName string       `db:"event_name"`
	Details   string       `db:"details"`
	Location  string       `db:"location"`
	StartDate backend.Date `db:"start_date"`
	EndDate   backend.Date `db:"end_date"`
	CreatedAt int64        `db:"created_at"`
}

func (r eventRow) toEvent() backend.Event {
	return backend.Event{
		ID:        r.ID,
		EventName: r.EventName,
		Details:   r.Details,
		Location:  r.Location,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

type attendeeRow struct {
	ID           int64  `db:"id"`
	EventID      int64  `db:"event_id"`
	AttendeeName string `db:"attendee_name"`
}

func (r attendeeRow) toAttendee() backend.Attendee {
	return backend.Attendee{ID: r.ID, EventID: r.EventID, AttendeeName: r.AttendeeName}
}

// CreateEvent inserts an event and returns it with its id.
func (s *Store) CreateEvent(ctx context.Context, event backend.Event) (backend.Event, error) {
	var row eventRow
	err := get(ctx, s.sqlDB, &row, psql.Insert("events").
		Columns("event_name", "details", "location", "start_date", "end_date", "created_at").
		Values(event.EventName, event.Details, event.Location, event.StartDate, event.EndDate, toMillis(event.CreatedAt)).
		Suffix("RETURNING "+joinColumns(eventColumns)))
	if err != nil {
		return backend.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return row.toEvent(), nil
}

// GetEvent returns one event by id, without attendees.
func (s *Store) GetEvent(ctx context.Context, id int64) (backend.Event, error) {
	var row eventRow
	err := get(ctx, s.sqlDB, &row, psql.Select(eventColumns...).From("events").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return backend.Event{}, fmt.Errorf("get event %d: %w", id, err)
	}
	return row.toEvent(), nil
}

// GetEventByName returns the oldest event whose name matches case-insensitively.
func (s *Store) GetEventByName(ctx context.Context, name string) (backend.Event, error) {
	var row eventRow
	err := get(ctx, s.sqlDB, &row, psql.Select(eventColumns...).From("events").
		Where(squirrel.Expr("lower(event_name) = lower(?)", name)).
		OrderBy("id").
		Limit(1))
	if err != nil {
		return backend.Event{}, fmt.Errorf("get event %q: %w", name, err)
	}
	return row.toEvent(), nil
}

// ListEvents returns the events matching filter ordered by start date.
func (s *Store) ListEvents(ctx context.Context, filter backend.EventFilter) ([]backend.Event, error) {
	query := psql.Select(eventColumns...).From("events").OrderBy("start_date", "id")
	if filter.StartsOnOrAfter != nil {
		query = query.Where(squirrel.GtOrEq{"start_date": *filter.StartsOnOrAfter})
	}
	if filter.EndsBefore != nil {
		query = query.Where(squirrel.Lt{"end_date": *filter.EndsBefore})
	}

	var rows []eventRow
	if err := selectAll(ctx, s.sqlDB, &rows, query); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]backend.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toEvent())
	}
	return events, nil
}

// UpdateEvent replaces the editable fields of event.ID.
func (s *Store) UpdateEvent(ctx context.Context, event backend.Event) (backend.Event, error) {
	var row eventRow
	err := get(ctx, s.sqlDB, &row, psql.Update("events").
		SetMap(map[string]any{
			"event_name": event.EventName,
			"details":    event.Details,
			"location":   event.Location,
			"start_date": event.StartDate,
			"end_date":   event.EndDate,
		}).
		Where(squirrel.Eq{"id": event.ID}).
		Suffix("RETURNING "+joinColumns(eventColumns)))
	if err != nil {
		return backend.Event{}, fmt.Errorf("update event %d: %w", event.ID, err)
	}
	return row.toEvent(), nil
}

// DeleteEvent removes an event together with its attendees and tickets.
func (s *Store) DeleteEvent(ctx context.Context, id int64) (backend.Event, error) {
	var row eventRow
	err := get(ctx, s.sqlDB, &row, psql.Delete("events").
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING "+joinColumns(eventColumns)))
	if err != nil {
		return backend.Event{}, fmt.Errorf("delete event %d: %w", id, err)
	}
	return row.toEvent(), nil
}

// AddAttendee registers name for an existing event.
func (s *Store) AddAttendee(ctx context.Context, eventID int64, name string) (backend.Attendee, error) {
	var attendee backend.Attendee
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		attendee, err = insertAttendee(ctx, tx, eventID, name)
		return err
	})
	return attendee, err
}

func insertAttendee(ctx context.Context, tx *sql.Tx, eventID int64, name string) (backend.Attendee, error) {
	if err := eventExists(ctx, tx, eventID); err != nil {
		return backend.Attendee{}, err
	}

	var row attendeeRow
	err := get(ctx, tx, &row, psql.Insert("attendees").
		Columns("event_id", "attendee_name").
		Values(eventID, name).
		Suffix("RETURNING "+joinColumns(attendeeColumns)))
	if err != nil {
		return backend.Attendee{}, fmt.Errorf("insert attendee: %w", err)
	}
	return row.toAttendee(), nil
}

// ListAttendees returns the attendees of an event in registration order.
func (s *Store) ListAttendees(ctx context.Context, eventID int64) ([]backend.Attendee, error) {
	var rows []attendeeRow
	err := selectAll(ctx, s.sqlDB, &rows, psql.Select(attendeeColumns...).From("attendees").
		Where(squirrel.Eq{"event_id": eventID}).
		OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}

	attendees := make([]backend.Attendee, 0, len(rows))
	for _, row := range rows {
		attendees = append(attendees, row.toAttendee())
	}
	return attendees, nil
}
