package runtime

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuntime() *ActorRuntime {
	logger := zerolog.New(os.Stderr).Level(zerolog.ErrorLevel)
	return NewActorRuntime(logger)
}

func TestNewActorRuntime(t *testing.T) {
	// Test: Create new runtime
	runtime := newTestRuntime()

	assert.NotNil(t, runtime)
	assert.NotNil(t, runtime.deployedActors)
	assert.False(t, runtime.started)
}

func TestActorRuntime_Start(t *testing.T) {
	// Test: Start runtime
	t.Run("successful start", func(t *testing.T) {
		runtime := newTestRuntime()
		ctx := context.Background()

		require.NoError(t, runtime.Start(ctx))
		assert.True(t, runtime.started)
		assert.NotNil(t, runtime.actorSystem)

		runtime.Shutdown(ctx)
	})

	// Test: Start already started runtime
	t.Run("already started", func(t *testing.T) {
		runtime := newTestRuntime()
		ctx := context.Background()
		require.NoError(t, runtime.Start(ctx))

		err := runtime.Start(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already started")

		runtime.Shutdown(ctx)
	})
}

func TestActorRuntime_Deploy(t *testing.T) {
	// Test: Deploy service successfully
	t.Run("successful deploy", func(t *testing.T) {
		runtime := newTestRuntime()
		ctx := context.Background()
		require.NoError(t, runtime.Start(ctx))
		defer runtime.Shutdown(ctx)

		actorID, err := runtime.Deploy(ctx, createTestServicePackage(t, echoHandler()))
		require.NoError(t, err)
		assert.Equal(t, "test.TestService.v1", actorID)
		assert.True(t, runtime.IsDeployed(actorID))
		assert.NotNil(t, runtime.PID(actorID))
	})

	// Test: deployed actor answers requests
	t.Run("deployed actor answers", func(t *testing.T) {
		runtime := newTestRuntime()
		ctx := context.Background()
		require.NoError(t, runtime.Start(ctx))
		defer runtime.Shutdown(ctx)

		actorID, err := runtime.Deploy(ctx, createTestServicePackage(t, echoHandler()))
		require.NoError(t, err)

		resp := ask(t, runtime.PID(actorID), &ServiceRequest{ID: "r", Method: "echo", Input: []byte(`"hi"`)})
		assert.True(t, resp.Success)
		assert.Equal(t, []byte(`"hi"`), resp.Output)
	})

	// Test: Deploy without starting runtime
	t.Run("runtime not started", func(t *testing.T) {
		runtime := newTestRuntime()

		_, err := runtime.Deploy(context.Background(), createTestServicePackage(t, echoHandler()))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "runtime not started")
	})

	// Test: Deploy nil package
	t.Run("nil package", func(t *testing.T) {
		runtime := newTestRuntime()
		ctx := context.Background()
		require.NoError(t, runtime.Start(ctx))
		defer runtime.Shutdown(ctx)

		_, err := runtime.Deploy(ctx, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be nil")
	})

	// Test: Deploy same service twice
	t.Run("already deployed", func(t *testing.T) {
		runtime := newTestRuntime()
		ctx := context.Background()
		require.NoError(t, runtime.Start(ctx))
		defer runtime.Shutdown(ctx)

		_, err := runtime.Deploy(ctx, createTestServicePackage(t, echoHandler()))
		require.NoError(t, err)

		_, err = runtime.Deploy(ctx, createTestServicePackage(t, echoHandler()))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already deployed")
	})
}

func TestActorRuntime_Undeploy(t *testing.T) {
	// Test: Undeploy deployed service
	t.Run("successful undeploy", func(t *testing.T) {
		runtime := newTestRuntime()
		ctx := context.Background()
		require.NoError(t, runtime.Start(ctx))
		defer runtime.Shutdown(ctx)

		actorID, err := runtime.Deploy(ctx, createTestServicePackage(t, echoHandler()))
		require.NoError(t, err)

		require.NoError(t, runtime.Undeploy(ctx, actorID))
		assert.False(t, runtime.IsDeployed(actorID))
		assert.Nil(t, runtime.PID(actorID))
	})

	// Test: Undeploy unknown service
	t.Run("not deployed", func(t *testing.T) {
		runtime := newTestRuntime()
		ctx := context.Background()
		require.NoError(t, runtime.Start(ctx))
		defer runtime.Shutdown(ctx)

		err := runtime.Undeploy(ctx, "missing.Service.v1")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not deployed")
	})

	// Test: Undeploy before start
	t.Run("runtime not started", func(t *testing.T) {
		err := newTestRuntime().Undeploy(context.Background(), "x")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "runtime not started")
	})
}

func TestActorRuntime_Shutdown(t *testing.T) {
	// Test: Shutdown clears deployed actors
	t.Run("clears actors", func(t *testing.T) {
		runtime := newTestRuntime()
		ctx := context.Background()
		require.NoError(t, runtime.Start(ctx))

		actorID, err := runtime.Deploy(ctx, createTestServicePackage(t, echoHandler()))
		require.NoError(t, err)

		require.NoError(t, runtime.Shutdown(ctx))
		assert.False(t, runtime.started)
		assert.False(t, runtime.IsDeployed(actorID))
	})

	// Test: Shutdown before start
	t.Run("runtime not started", func(t *testing.T) {
		err := newTestRuntime().Shutdown(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "runtime not started")
	})
}
