package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tochemey/goakt/v2/actors"
)

// ActorRuntime is the default implementation of Runtime
type ActorRuntime struct {
	// name of the GoAKT actor system
	name string

	// actorSystem is the GoAKT actor system
	actorSystem actors.ActorSystem

	// actorOptions are applied to every spawned ServiceActor
	actorOptions []ServiceActorOption

	// deployedActors tracks deployed service actors
	deployedActors map[string]*actors.PID
	mu             sync.RWMutex

	// logger for runtime operations
	logger zerolog.Logger

	// started indicates if the runtime has been started
	started bool
}

// NewActorRuntime creates a new runtime instance
func NewActorRuntime(logger zerolog.Logger, actorOptions ...ServiceActorOption) *ActorRuntime {
	return &ActorRuntime{
		name:           "eventsphere-runtime",
		actorOptions:   actorOptions,
		deployedActors: make(map[string]*actors.PID),
		logger:         logger.With().Str("component", "runtime").Logger(),
		started:        false,
	}
}

// Start initializes the runtime and starts the actor system
func (r *ActorRuntime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("runtime already started")
	}

	// GoAKT keeps its own logger; runtime operations are tracked with zerolog
	actorSystem, err := actors.NewActorSystem(r.name)
	if err != nil {
		return fmt.Errorf("failed to create actor system: %w", err)
	}

	if err := actorSystem.Start(ctx); err != nil {
		return fmt.Errorf("failed to start actor system: %w", err)
	}

	r.actorSystem = actorSystem
	r.started = true

	r.logger.Info().Str("system", r.name).Msg("runtime started successfully")
	return nil
}

// Deploy spawns a ServiceActor for the package
func (r *ActorRuntime) Deploy(ctx context.Context, pkg *ServicePackage) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return "", fmt.Errorf("runtime not started")
	}

	if pkg == nil {
		return "", fmt.Errorf("service package cannot be nil")
	}

	actorID := pkg.ActorID()

	if _, exists := r.deployedActors[actorID]; exists {
		return "", fmt.Errorf("service %s already deployed", actorID)
	}

	actor := NewServiceActor(pkg, r.actorOptions...)

	pid, err := r.actorSystem.Spawn(ctx, actorID, actor)
	if err != nil {
		return "", fmt.Errorf("failed to spawn actor %s: %w", actorID, err)
	}

	r.deployedActors[actorID] = pid

	r.logger.Info().
		Str("actor_id", actorID).
		Str("service", pkg.ServiceName()).
		Int("methods", len(pkg.Methods)).
		Msg("service deployed successfully")

	return actorID, nil
}

// Undeploy removes a service from the runtime
func (r *ActorRuntime) Undeploy(ctx context.Context, actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return fmt.Errorf("runtime not started")
	}

	pid, exists := r.deployedActors[actorID]
	if !exists {
		return fmt.Errorf("service %s not deployed", actorID)
	}

	if err := pid.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown actor %s: %w", actorID, err)
	}

	delete(r.deployedActors, actorID)

	r.logger.Info().
		Str("actor_id", actorID).
		Msg("service undeployed successfully")

	return nil
}

// IsDeployed checks if a service is deployed
func (r *ActorRuntime) IsDeployed(actorID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.deployedActors[actorID]
	return exists
}

// Shutdown stops all deployed actors and then the actor system
func (r *ActorRuntime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return fmt.Errorf("runtime not started")
	}

	r.logger.Info().
		Int("deployed_actors", len(r.deployedActors)).
		Msg("shutting down runtime")

	var shutdownErrors []error
	for actorID, pid := range r.deployedActors {
		if err := pid.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors,
				fmt.Errorf("failed to shutdown actor %s: %w", actorID, err))
			r.logger.Error().
				Err(err).
				Str("actor_id", actorID).
				Msg("failed to shutdown actor")
		}
	}

	r.deployedActors = make(map[string]*actors.PID)

	if err := r.actorSystem.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop actor system: %w", err)
	}

	r.started = false
	r.logger.Info().Msg("runtime shutdown complete")

	// Return first error if any occurred during actor shutdown
	if len(shutdownErrors) > 0 {
		return shutdownErrors[0]
	}

	return nil
}

// PID returns the PID for a given actor ID, or nil when it is not deployed
func (r *ActorRuntime) PID(actorID string) *actors.PID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if pid, exists := r.deployedActors[actorID]; exists {
		return pid
	}
	return nil
}

// Ensure ActorRuntime implements Runtime interface
var _ Runtime = (*ActorRuntime)(nil)
