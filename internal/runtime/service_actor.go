package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/tochemey/goakt/v2/actors"
)

// Messages sent in place of handler errors that carry no code of their own.
const (
	executionErrorMessage = "internal error"
	timeoutErrorMessage   = "method timed out"
)

// ServiceActor is a GoAKT actor that executes the methods of a service package
type ServiceActor struct {
	// servicePackage contains the handler and the descriptor
	servicePackage *ServicePackage

	// defaultTimeout bounds a method call when the request carries no timeout
	defaultTimeout time.Duration

	// ready indicates if the actor is ready to process requests
	ready bool
}

// NewServiceActor creates a new service actor with optional configuration
func NewServiceActor(servicePackage *ServicePackage, opts ...ServiceActorOption) *ServiceActor {
	actor := &ServiceActor{
		servicePackage: servicePackage,
		defaultTimeout: 0, // no bound unless configured
		ready:          false,
	}

	for _, opt := range opts {
		opt(actor)
	}

	return actor
}

// PreStart initializes the actor before it starts receiving messages
func (a *ServiceActor) PreStart(ctx context.Context) error {
	if a.servicePackage == nil || a.servicePackage.Handler == nil {
		return ErrNilHandler
	}

	a.ready = true
	return nil
}

// Receive handles incoming messages
func (a *ServiceActor) Receive(ctx *actors.ReceiveContext) {
	req, err := ParseServiceRequest(ctx.Message())
	if err != nil {
		ctx.Logger().Warnf("received unknown message type: %T", ctx.Message())
		ctx.Unhandled()
		return
	}

	a.handleServiceRequest(ctx, req)
}

// PostStop cleans up resources when the actor stops
func (a *ServiceActor) PostStop(ctx context.Context) error {
	a.ready = false
	return nil
}

// handleServiceRequest processes a service request
func (a *ServiceActor) handleServiceRequest(ctx *actors.ReceiveContext, req *ServiceRequest) {
	start := time.Now()

	reply := func(resp *ServiceResponse) {
		resp.Duration = time.Since(start)
		msg, err := resp.Proto()
		if err != nil {
			ctx.Logger().Errorf("failed to encode response: %v", err)
			return
		}
		ctx.Response(msg)
	}

	if !a.ready {
		response := NewServiceResponse(req.ID, false)
		response.Error = NewServiceError(CodeInternal, "actor not ready")
		reply(response)
		return
	}

	if err := a.validateRequest(req); err != nil {
		response := NewServiceResponse(req.ID, false)
		response.Error = NewServiceError(CodeValidation, err.Error())
		reply(response)
		return
	}

	execCtx := ctx.Context()
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = a.defaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(execCtx, timeout)
		defer cancel()
	}

	output, err := a.servicePackage.Handler.Invoke(execCtx, req.Method, req.Input)
	if err != nil {
		code, message := errorCode(err), err.Error()
		switch code {
		case CodeExecution:
			ctx.Logger().Errorf("method %s failed: %v", req.Method, err)
			message = executionErrorMessage
		case CodeTimeout:
			message = timeoutErrorMessage
		}

		response := NewServiceResponse(req.ID, false)
		response.Error = NewServiceError(code, message)
		reply(response)
		return
	}

	response := NewServiceResponse(req.ID, true)
	response.Output = output
	response.Metadata = req.Metadata
	reply(response)
}

// validateRequest validates a service request against the descriptor
func (a *ServiceActor) validateRequest(req *ServiceRequest) error {
	if req.Method == "" {
		return fmt.Errorf("method name is required")
	}

	methodDef, exists := a.servicePackage.GetMethod(req.Method)
	if !exists {
		return fmt.Errorf("%w: %s", ErrMethodNotFound, req.Method)
	}

	if methodDef.InputType != "" && len(req.Input) == 0 {
		return fmt.Errorf("%w: method %s requires input of type %s",
			ErrInvalidInput, req.Method, methodDef.InputType)
	}

	return nil
}

// Ensure ServiceActor implements actors.Actor
var _ actors.Actor = (*ServiceActor)(nil)
