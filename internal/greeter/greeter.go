// Package greeter bridges a form submission to the backend greet capability and
// reflects the result in a view.
package greeter

import "context"

// Greeter is the greet capability exposed by the backend actor.
type Greeter interface {
	Greet(ctx context.Context, name string) (string, error)
}

// GreeterFunc adapts a plain function to the Greeter interface.
type GreeterFunc func(ctx context.Context, name string) (string, error)

// Greet calls f(ctx, name).
func (f GreeterFunc) Greet(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}

// View is the narrow surface of the page the form handler touches.
type View interface {
	// Name returns the current value of the name input.
	Name() string

	// SetDisabled toggles the disabled attribute of the submit button.
	SetDisabled(disabled bool)

	// SetGreeting replaces the text content of the greeting element.
	SetGreeting(text string)
}

// SubmitEvent is the submit event delivered by the host.
type SubmitEvent interface {
	PreventDefault()
}
