package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/eventsphere/eventsphere/internal/backend"
)

type ticketRow struct {
	ID          int64  `db:"id"`
	EventID     int64  `db:"event_id"`
	TicketType  string `db:"ticket_type"`
	TicketPrice int64  `db:"ticket_price"`
}

func (r ticketRow) toTicket() backend.Ticket {
	return backend.Ticket{
		ID:          r.ID,
		EventID:     r.EventID,
		TicketType:  backend.TicketType(r.TicketType),
		TicketPrice: r.TicketPrice,
	}
}

func toTickets(rows []ticketRow) []backend.Ticket {
	tickets := make([]backend.Ticket, 0, len(rows))
	for _, row := range rows {
		tickets = append(tickets, row.toTicket())
	}
	return tickets
}

// CreateTickets inserts count tickets of one type for an existing event.
func (s *Store) CreateTickets(ctx context.Context, eventID int64, ticketType backend.TicketType, price int64, count int) ([]backend.Ticket, error) {
	if count <= 0 {
		return nil, fmt.Errorf("ticket count must be greater than zero")
	}

	var rows []ticketRow
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := eventExists(ctx, tx, eventID); err != nil {
			return err
		}

		insert := psql.Insert("tickets").Columns("event_id", "ticket_type", "ticket_price")
		for range count {
			insert = insert.Values(eventID, string(ticketType), price)
		}

		if err := selectAll(ctx, tx, &rows, insert.Suffix("RETURNING "+joinColumns(ticketColumns))); err != nil {
			return fmt.Errorf("insert tickets: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toTickets(rows), nil
}

// ListTickets returns the unsold tickets of an event.
func (s *Store) ListTickets(ctx context.Context, eventID int64) ([]backend.Ticket, error) {
	var rows []ticketRow
	err := selectAll(ctx, s.sqlDB, &rows, psql.Select(ticketColumns...).From("tickets").
		Where(squirrel.Eq{"event_id": eventID}).
		OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return toTickets(rows), nil
}

// DeleteTicket removes one ticket and returns the removed row.
func (s *Store) DeleteTicket(ctx context.Context, id int64) (backend.Ticket, error) {
	var row ticketRow
	err := get(ctx, s.sqlDB, &row, psql.Delete("tickets").
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING "+joinColumns(ticketColumns)))
	if err != nil {
		return backend.Ticket{}, fmt.Errorf("delete ticket %d: %w", id, err)
	}
	return row.toTicket(), nil
}

// CountTickets counts the unsold tickets of one type for an event.
func (s *Store) CountTickets(ctx context.Context, eventID int64, ticketType backend.TicketType) (int, error) {
	var count int
	err := get(ctx, s.sqlDB, &count, psql.Select("COUNT(*)").From("tickets").
		Where(squirrel.Eq{"event_id": eventID, "ticket_type": string(ticketType)}))
	if err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return count, nil
}

// PurchaseTickets takes the oldest matching tickets and registers the
// attendee. Nothing changes when the event is missing or too few tickets are
// left.
func (s *Store) PurchaseTickets(ctx context.Context, purchase backend.Purchase) ([]backend.Ticket, error) {
	if purchase.NumTickets <= 0 {
		return nil, fmt.Errorf("ticket count must be greater than zero")
	}

	var rows []ticketRow
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := eventExists(ctx, tx, purchase.EventID); err != nil {
			return err
		}

		err := selectAll(ctx, tx, &rows, psql.Select(ticketColumns...).From("tickets").
			Where(squirrel.Eq{"event_id": purchase.EventID, "ticket_type": string(purchase.TicketType)}).
			OrderBy("id").
			Limit(uint64(purchase.NumTickets)))
		if err != nil {
			return fmt.Errorf("select tickets: %w", err)
		}
		if len(rows) < purchase.NumTickets {
			return fmt.Errorf("%d of %d %s tickets left: %w",
				len(rows), purchase.NumTickets, purchase.TicketType, backend.ErrInsufficientTickets)
		}

		ids := make([]int64, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}

		stmt, args, err := psql.Delete("tickets").Where(squirrel.Eq{"id": ids}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("delete tickets: %w", err)
		}

		_, err = insertAttendee(ctx, tx, purchase.EventID, purchase.AttendeeName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toTickets(rows), nil
}
