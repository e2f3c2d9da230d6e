// Package backend implements the eventsphere Backend service: the greet
// method used by the greeting form and the user, event and ticket methods
// behind it.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventsphere/eventsphere/internal/runtime"
)

const (
	Namespace   = "eventsphere"
	ServiceName = "Backend"
	Version     = "v1"
)

type methodFunc func(ctx context.Context, input []byte) ([]byte, error)

type method struct {
	def runtime.Method
	fn  methodFunc
}

// Service dispatches Backend method calls to their implementations.
type Service struct {
	store      Store
	logger     zerolog.Logger
	validate   *validator.Validate
	policy     *bluemonday.Policy
	bcryptCost int
	now        func() time.Time

	methods map[string]method
	order   []string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithBcryptCost sets the cost used to hash passwords.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

// WithClock sets the clock used for timestamps and upcoming/past filters.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Backend service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		logger:     zerolog.Nop(),
		validate:   newValidator(),
		policy:     bluemonday.StrictPolicy(),
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With().Str("component", "backend").Logger()
	s.registerMethods()
	return s
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) registerMethods() {
	s.methods = make(map[string]method)

	s.register("greet", "GreetInput", "GreetOutput", handle(s, s.greet))

	s.register("register_user", "RegisterUserInput", "User", handle(s, s.registerUser))
	s.register("get_user", "GetUserInput", "User", handle(s, s.getUser))
	s.register("update_user", "UpdateUserInput", "User", handle(s, s.updateUser))
	s.register("delete_user", "DeleteUserInput", "User", handle(s, s.deleteUser))

	s.register("add_event", "AddEventInput", "Event", handle(s, s.addEvent))
	s.register("update_event", "UpdateEventInput", "Event", handle(s, s.updateEvent))
	s.register("delete_event", "DeleteEventInput", "Event", handle(s, s.deleteEvent))
	s.register("get_event", "GetEventInput", "Event", handle(s, s.getEvent))
	s.register("get_event_by_name", "GetEventByNameInput", "Event", handle(s, s.getEventByName))
	s.register("get_events", "", "[]Event", handle(s, s.getEvents))
	s.register("get_upcoming_events", "", "[]Event", handle(s, s.getUpcomingEvents))
	s.register("get_past_events", "", "[]Event", handle(s, s.getPastEvents))

	s.register("add_attendees", "AddAttendeeInput", "Attendee", handle(s, s.addAttendee))
	s.register("get_attendees", "GetAttendeesInput", "[]Attendee", handle(s, s.getAttendees))

	s.register("generate_tickets", "GenerateTicketsInput", "[]Ticket", handle(s, s.generateTickets))
	s.register("get_tickets", "GetTicketsInput", "[]Ticket", handle(s, s.getTickets))
	s.register("delete_ticket", "DeleteTicketInput", "Ticket", handle(s, s.deleteTicket))
	s.register("get_available_tickets_count", "AvailableTicketsInput", "AvailableTicketsOutput", handle(s, s.availableTickets))
	s.register("purchase_ticket", "PurchaseTicketInput", "PurchaseTicketOutput", handle(s, s.purchaseTicket))
}

func (s *Service) register(name, inputType, outputType string, fn methodFunc) {
	s.methods[name] = method{
		def: runtime.Method{Name: name, InputType: inputType, OutputType: outputType},
		fn:  fn,
	}
	s.order = append(s.order, name)
}

// Descriptor describes the Backend service and its methods.
func (s *Service) Descriptor() runtime.Descriptor {
	methods := make([]runtime.Method, 0, len(s.order))
	for _, name := range s.order {
		methods = append(methods, s.methods[name].def)
	}

	return runtime.Descriptor{
		Namespace: Namespace,
		Name:      ServiceName,
		Version:   Version,
		Methods:   methods,
	}
}

// Package bundles the service for deployment on a runtime.
func (s *Service) Package() (*runtime.ServicePackage, error) {
	return runtime.NewServicePackage(s, s.Descriptor())
}

// Invoke implements runtime.Handler.
func (s *Service) Invoke(ctx context.Context, name string, input []byte) ([]byte, error) {
	m, ok := s.methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", runtime.ErrMethodNotFound, name)
	}

	start := time.Now()
	output, err := m.fn(ctx, input)

	event := s.logger.Debug()
	var svcErr *Error
	if err != nil && !errors.As(err, &svcErr) {
		event = s.logger.Error().Err(err)
	}
	event.
		Str("method", name).
		Dur("duration", time.Since(start)).
		Bool("ok", err == nil).
		Msg("method invoked")

	return output, err
}

// handle decodes, sanitizes and validates the JSON input of a method, calls fn
// and encodes its result.
func handle[In any, Out any](s *Service, fn func(context.Context, *In) (Out, error)) methodFunc {
	return func(ctx context.Context, input []byte) ([]byte, error) {
		in := new(In)
		if len(input) > 0 {
			if err := json.Unmarshal(input, in); err != nil {
				return nil, newError(ErrInvalidArgument, "invalid input: %v", err)
			}
		}

		if sn, ok := any(in).(sanitizer); ok {
			sn.sanitize(s.policy)
		}

		if err := s.validate.Struct(in); err != nil {
			return nil, validationError(err)
		}

		out, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}

		return json.Marshal(out)
	}
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return newError(ErrInvalidArgument, "invalid input: %v", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return newError(ErrInvalidArgument, "%s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func (s *Service) greet(ctx context.Context, in *GreetInput) (GreetOutput, error) {
	return GreetOutput{Message: "Hello, " + in.Name + "!"}, nil
}

// today is the current calendar day in UTC.
func (s *Service) today() Date {
	return DateOf(s.now())
}

var _ runtime.Handler = (*Service)(nil)
