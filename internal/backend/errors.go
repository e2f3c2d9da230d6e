package backend

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInsufficientTickets is returned by Store.PurchaseTickets when fewer
	// tickets are left than requested.
	ErrInsufficientTickets = errors.New("not enough tickets available")
)

var errorCodes = map[error]string{
	ErrNotFound:         "NOT_FOUND",
	ErrAlreadyExists:    "ALREADY_EXISTS",
	ErrInvalidArgument:  "INVALID_ARGUMENT",
	ErrUnauthenticated:  "UNAUTHENTICATED",
	ErrPermissionDenied: "PERMISSION_DENIED",
}

// Error is a client facing failure of a backend method. Its message is sent to
// the caller as is.
type Error struct {
	kind error
	msg  string
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.msg
}

// Code returns the wire error code.
func (e *Error) Code() string {
	if code, ok := errorCodes[e.kind]; ok {
		return code
	}
	return "INTERNAL_ERROR"
}

func (e *Error) Unwrap() error {
	return e.kind
}
