package backend

import "context"

// Store persists users, events, attendees and tickets.
//
// Lookups of missing rows return an error wrapping ErrNotFound, and unique
// username violations return an error wrapping ErrAlreadyExists.
type Store interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	DeleteUser(ctx context.Context, id int64) (User, error)

	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id int64) (Event, error)
	GetEventByName(ctx context.Context, name string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, id int64) (Event, error)

	AddAttendee(ctx context.Context, eventID int64, name string) (Attendee, error)
	ListAttendees(ctx context.Context, eventID int64) ([]Attendee, error)

	CreateTickets(ctx context.Context, eventID int64, ticketType TicketType, price int64, count int) ([]Ticket, error)
	ListTickets(ctx context.Context, eventID int64) ([]Ticket, error)
	DeleteTicket(ctx context.Context, id int64) (Ticket, error)
	CountTickets(ctx context.Context, eventID int64, ticketType TicketType) (int, error)

	// PurchaseTickets removes NumTickets tickets of the type and adds the
	// attendee in one transaction.
	PurchaseTickets(ctx context.Context, purchase Purchase) ([]Ticket, error)

	Close() error
}
