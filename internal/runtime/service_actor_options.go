package runtime

import "time"

// ServiceActorOption is a functional option for configuring a ServiceActor
type ServiceActorOption func(*ServiceActor)

// WithDefaultTimeout bounds method calls that carry no timeout of their own
func WithDefaultTimeout(timeout time.Duration) ServiceActorOption {
	return func(a *ServiceActor) {
		a.defaultTimeout = timeout
	}
}
