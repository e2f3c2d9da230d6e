package backend

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role is the privilege level of a user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// TicketType is the class of a ticket.
type TicketType string

const (
	TicketRegular  TicketType = "Regular"
	TicketVIP      TicketType = "VIP"
	TicketVVIP     TicketType = "VVIP"
	TicketDiscount TicketType = "Discount"
)

const (
	dateLayout        = "2-1-2006"
	dateDisplayLayout = "02-01-2006"
	dateStorageLayout = "2006-01-02"
)

// Date is a calendar day without time of day. It travels as DD-MM-YYYY on the
// wire and is stored as YYYY-MM-DD so stored dates sort lexically.
type Date struct {
	time.Time
}

// ParseDate parses a DD-MM-YYYY date. Single digit days and months are accepted.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected DD-MM-YYYY", s)
	}
	return Date{t}, nil
}

// DateOf returns the calendar day of t in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(dateDisplayLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.Format(dateStorageLayout), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	t, err := time.Parse(dateStorageLayout, s)
	if err != nil {
		return fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	*d = Date{t}
	return nil
}

// User is a registered account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// Event is a scheduled event with its attendee list.
type Event struct {
	ID        int64      `json:"id"`
	EventName string     `json:"event_name"`
	Details   string     `json:"details"`
	Location  string     `json:"location"`
	StartDate Date       `json:"start_date"`
	EndDate   Date       `json:"end_date"`
	CreatedAt time.Time  `json:"created_at"`
	Attendees []Attendee `json:"attendees"`
}

// EventFilter narrows ListEvents. Zero values do not filter.
type EventFilter struct {
	// StartsOnOrAfter keeps events starting on or after the day.
	StartsOnOrAfter *Date
	// EndsBefore keeps events that ended before the day.
	EndsBefore *Date
}

// Attendee is a name registered for an event.
type Attendee struct {
	ID           int64  `json:"id"`
	EventID      int64  `json:"event_id"`
	AttendeeName string `json:"attendee_name"`
}

// Ticket is one unsold ticket of an event.
type Ticket struct {
	ID          int64      `json:"ticket_id"`
	EventID     int64      `json:"event_id"`
	TicketType  TicketType `json:"ticket_type"`
	TicketPrice int64      `json:"ticket_price"`
}

// Purchase is a request to buy tickets on behalf of an attendee.
type Purchase struct {
	EventID      int64
	TicketType   TicketType
	AttendeeName string
	NumTickets   int
}
