package runtime

import (
	"context"
	"errors"
)

var (
	// Package creation errors
	ErrNilHandler      = errors.New("handler cannot be nil")
	ErrNoService       = errors.New("service name cannot be empty")
	ErrNoMethods       = errors.New("service must declare at least one method")
	ErrDuplicateMethod = errors.New("method declared more than once")

	// Validation errors
	ErrMethodNotFound = errors.New("method not found in service descriptor")
	ErrInvalidInput   = errors.New("invalid input for method")

	// Envelope errors
	ErrNotServiceRequest  = errors.New("message is not a service request")
	ErrNotServiceResponse = errors.New("message is not a service response")
)

// Coder is implemented by handler errors that carry a wire error code.
type Coder interface {
	Code() string
}

// Error codes produced by the runtime itself. Handlers may return any other
// code through Coder.
const (
	CodeInternal    = "INTERNAL_ERROR"
	CodeValidation  = "VALIDATION_ERROR"
	CodeExecution   = "EXECUTION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeUnavailable = "UNAVAILABLE"
	CodeTimeout     = "DEADLINE_EXCEEDED"
)

// errorCode returns the wire code for a handler error.
func errorCode(err error) string {
	var coder Coder
	if errors.As(err, &coder) && coder.Code() != "" {
		return coder.Code()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeExecution
}
