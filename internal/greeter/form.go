package greeter

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// State is the externally visible state of a FormGreeter.
type State int32

const (
	// Idle means no greet call is outstanding.
	Idle State = iota
	// AwaitingResponse means at least one greet call has not resolved yet.
	AwaitingResponse
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingResponse:
		return "awaiting_response"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// FailurePolicy decides what the view shows when the greet call fails.
type FailurePolicy int

const (
	// LeaveDisabled keeps the button disabled and writes nothing, which is what
	// the browser page has always done on a rejected call.
	LeaveDisabled FailurePolicy = iota
	// RecoverAndReport re-enables the button and writes an error text into the
	// greeting element.
	RecoverAndReport
)

func (p FailurePolicy) String() string {
	switch p {
	case LeaveDisabled:
		return "leave_disabled"
	case RecoverAndReport:
		return "recover_and_report"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// DefaultErrorText is written by RecoverAndReport when no WithErrorText is given.
const DefaultErrorText = "Could not fetch a greeting. Please try again."

// FormGreeter handles submissions of the greeting form.
//
// A FormGreeter is reusable across submissions and does not serialize them:
// the disabled button is the only guard against duplicate calls.
type FormGreeter struct {
	view      View
	greeter   Greeter
	logger    zerolog.Logger
	policy    FailurePolicy
	errorText func(error) string

	pending atomic.Int32
}

// Option configures a FormGreeter.
type Option func(*FormGreeter)

// WithLogger sets the logger used for submissions and failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *FormGreeter) {
		f.logger = logger
	}
}

// WithFailurePolicy sets the failure policy. The default is LeaveDisabled.
func WithFailurePolicy(policy FailurePolicy) Option {
	return func(f *FormGreeter) {
		f.policy = policy
	}
}

// WithErrorText sets the function producing the text shown by RecoverAndReport.
func WithErrorText(text func(error) string) Option {
	return func(f *FormGreeter) {
		if text != nil {
			f.errorText = text
		}
	}
}

// NewFormGreeter creates a form handler bound to view and greeter.
func NewFormGreeter(view View, greeter Greeter, opts ...Option) *FormGreeter {
	f := &FormGreeter{
		view:    view,
		greeter: greeter,
		logger:  zerolog.Nop(),
		policy:  LeaveDisabled,
		errorText: func(error) string {
			return DefaultErrorText
		},
	}

	for _, opt := range opts {
		opt(f)
	}

	f.logger = f.logger.With().Str("component", "greeter").Logger()
	return f
}

// State reports whether a greet call is outstanding.
func (f *FormGreeter) State() State {
	if f.pending.Load() > 0 {
		return AwaitingResponse
	}
	return Idle
}

// Submit runs the synchronous part of a submission (prevent the default
// action, disable the button, read the name) and starts the greet call.
// The returned Submission resolves when the call does.
//
// View methods are called from another goroutine once the call resolves.
func (f *FormGreeter) Submit(ctx context.Context, ev SubmitEvent) *Submission {
	if ev != nil {
		ev.PreventDefault()
	}

	f.view.SetDisabled(true)
	name := f.view.Name()

	f.pending.Add(1)
	sub := newSubmission(name)

	f.logger.Debug().Int("name_len", len(name)).Msg("greet call issued")

	go f.await(ctx, sub)

	return sub
}

// OnSubmit handles one submit event end to end and always returns false so
// the host performs no further default handling.
func (f *FormGreeter) OnSubmit(ctx context.Context, ev SubmitEvent) bool {
	_, _ = f.Submit(ctx, ev).Wait()
	return false
}

func (f *FormGreeter) await(ctx context.Context, sub *Submission) {
	greeting, err := f.greeter.Greet(ctx, sub.Name)
	if err != nil {
		f.fail(sub, err)
		return
	}

	f.view.SetDisabled(false)
	f.view.SetGreeting(greeting)

	f.pending.Add(-1)
	sub.resolve(greeting, nil)
}

func (f *FormGreeter) fail(sub *Submission, err error) {
	err = fmt.Errorf("greet call failed: %w", err)

	f.logger.Error().
		Err(err).
		Str("policy", f.policy.String()).
		Msg("greeting not rendered")

	if f.policy == RecoverAndReport {
		f.view.SetDisabled(false)
		f.view.SetGreeting(f.errorText(err))
	}

	f.pending.Add(-1)
	sub.resolve("", err)
}
