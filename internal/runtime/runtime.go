package runtime

import (
	"context"
)

// Runtime manages the actor system and the services deployed on it
type Runtime interface {
	// Start initializes the runtime and starts the actor system
	Start(ctx context.Context) error

	// Deploy spawns an actor for the service package
	// Returns the actor ID (namespace.Service.version)
	Deploy(ctx context.Context, pkg *ServicePackage) (string, error)

	// Undeploy stops the actor of a deployed service
	Undeploy(ctx context.Context, actorID string) error

	// IsDeployed checks if a service is deployed
	IsDeployed(actorID string) bool

	// Shutdown gracefully shuts down the runtime and all actors
	Shutdown(ctx context.Context) error
}
