package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tochemey/goakt/v2/actors"
)

// Invoker calls the methods of one deployed service from inside the process,
// without going through the HTTP gateway. Failed calls return a *ServiceError.
type Invoker struct {
	pid     *actors.PID
	client  ActorClient
	timeout time.Duration
}

// InvokerOption configures an Invoker
type InvokerOption func(*Invoker)

// WithInvokerTimeout bounds the wait for an actor reply. Default 30s.
func WithInvokerTimeout(timeout time.Duration) InvokerOption {
	return func(i *Invoker) {
		i.timeout = timeout
	}
}

// WithInvokerClient replaces the client used to reach the actor
func WithInvokerClient(client ActorClient) InvokerOption {
	return func(i *Invoker) {
		i.client = client
	}
}

// NewInvoker creates an Invoker for the actor behind pid
func NewInvoker(pid *actors.PID, opts ...InvokerOption) *Invoker {
	i := &Invoker{
		pid:     pid,
		client:  &defaultActorClient{},
		timeout: defaultAskTimeout,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Invoke implements Handler by asking the actor.
func (i *Invoker) Invoke(ctx context.Context, method string, input []byte) ([]byte, error) {
	req := &ServiceRequest{
		ID:     uuid.NewString(),
		Method: method,
		Input:  input,
	}

	resp, err := i.client.Ask(ctx, i.pid, req, i.timeout)
	if err != nil {
		return nil, NewServiceError(CodeUnavailable, fmt.Sprintf("actor request failed: %v", err))
	}

	if resp.Error != nil {
		return nil, resp.Error
	}
	if !resp.Success {
		return nil, NewServiceError(CodeInternal, "service call failed")
	}

	return resp.Output, nil
}

var _ Handler = (*Invoker)(nil)
