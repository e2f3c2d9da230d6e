package backend

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Credentials identify the caller of a privileged method.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type GreetInput struct {
	Name string `json:"name"`
}

type GreetOutput struct {
	Message string `json:"message"`
}

// UserFields are the editable fields of a user.
type UserFields struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     Role   `json:"role" validate:"omitempty,oneof=admin user"`
}

type RegisterUserInput struct {
	UserFields
}

type GetUserInput struct {
	UserID int64 `json:"user_id" validate:"required"`
}

type UpdateUserInput struct {
	UserID      int64       `json:"user_id" validate:"required"`
	User        UserFields  `json:"user"`
	Credentials Credentials `json:"credentials"`
}

type DeleteUserInput struct {
	UserID      int64       `json:"user_id" validate:"required"`
	Credentials Credentials `json:"credentials"`
}

// EventFields are the editable fields of an event. Dates are DD-MM-YYYY.
type EventFields struct {
	EventName string `json:"event_name" validate:"required,max=200"`
	Details   string `json:"details" validate:"required"`
	Location  string `json:"location" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

func (f *EventFields) sanitize(p *bluemonday.Policy) {
	f.EventName = stripMarkup(p, f.EventName)
	f.Details = stripMarkup(p, f.Details)
	f.Location = stripMarkup(p, f.Location)
}

type AddEventInput struct {
	EventFields
	Credentials Credentials `json:"credentials"`
}

type UpdateEventInput struct {
	EventID int64 `json:"event_id" validate:"required"`
	EventFields
	Credentials Credentials `json:"credentials"`
}

type DeleteEventInput struct {
	EventID     *int64      `json:"event_id"`
	Credentials Credentials `json:"credentials"`
}

type GetEventInput struct {
	EventID int64 `json:"event_id" validate:"required"`
}

type GetEventByNameInput struct {
	EventName string `json:"event_name" validate:"required"`
}

type AddAttendeeInput struct {
	EventID      int64       `json:"event_id" validate:"required"`
	AttendeeName string      `json:"attendee_name" validate:"required,max=200"`
	Credentials  Credentials `json:"credentials"`
}

func (in *AddAttendeeInput) sanitize(p *bluemonday.Policy) {
	in.AttendeeName = stripMarkup(p, in.AttendeeName)
}

type GetAttendeesInput struct {
	EventID int64 `json:"event_id" validate:"required"`
}

type GenerateTicketsInput struct {
	EventID     int64       `json:"event_id" validate:"required"`
	TicketType  TicketType  `json:"ticket_type" validate:"required,oneof=Regular VIP VVIP Discount"`
	TicketPrice int64       `json:"ticket_price" validate:"gte=0"`
	NumTickets  int         `json:"num_tickets" validate:"gt=0,lte=10000"`
	Credentials Credentials `json:"credentials"`
}

type GetTicketsInput struct {
	EventID int64 `json:"event_id" validate:"required"`
}

type DeleteTicketInput struct {
	TicketID    int64       `json:"ticket_id" validate:"required"`
	Credentials Credentials `json:"credentials"`
}

type AvailableTicketsInput struct {
	EventID    int64      `json:"event_id" validate:"required"`
	TicketType TicketType `json:"ticket_type" validate:"required,oneof=Regular VIP VVIP Discount"`
}

type AvailableTicketsOutput struct {
	Count int `json:"count"`
}

type PurchaseTicketInput struct {
	EventID      int64       `json:"event_id" validate:"required"`
	TicketType   TicketType  `json:"ticket_type" validate:"required,oneof=Regular VIP VVIP Discount"`
	AttendeeName string      `json:"attendee_name" validate:"required,max=200"`
	NumTickets   int         `json:"num_tickets" validate:"gt=0"`
	Credentials  Credentials `json:"credentials"`
}

func (in *PurchaseTicketInput) sanitize(p *bluemonday.Policy) {
	in.AttendeeName = stripMarkup(p, in.AttendeeName)
}

type PurchaseTicketOutput struct {
	Tickets   []Ticket `json:"tickets"`
	TotalCost int64    `json:"total_cost"`
}

// sanitizer is implemented by inputs carrying free text that is shown to
// other users.
type sanitizer interface {
	sanitize(p *bluemonday.Policy)
}

// stripMarkup removes all markup from s. Entities produced by the policy are
// decoded again so "Rock & Roll" is stored as typed.
func stripMarkup(p *bluemonday.Policy, s string) string {
	return strings.TrimSpace(html.UnescapeString(p.Sanitize(s)))
}
