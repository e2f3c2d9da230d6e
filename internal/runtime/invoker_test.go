package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInvoker_Invoke(t *testing.T) {
	// Test: output is returned as is
	t.Run("success", func(t *testing.T) {
		client := &MockActorClient{}
		client.On("Ask", mock.Anything, mock.Anything, mock.MatchedBy(func(req *ServiceRequest) bool {
			return req.Method == "echo" && string(req.Input) == `{"a":1}` && req.ID != ""
		}), 5*time.Second).Return(&ServiceResponse{Success: true, Output: []byte(`{"a":1}`)}, nil).Once()

		invoker := NewInvoker(nil, WithInvokerClient(client), WithInvokerTimeout(5*time.Second))
		out, err := invoker.Invoke(context.Background(), "echo", []byte(`{"a":1}`))
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"a":1}`), out)
		client.AssertExpectations(t)
	})

	// Test: service errors are returned as ServiceError
	t.Run("service error", func(t *testing.T) {
		client := &MockActorClient{}
		client.On("Ask", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&ServiceResponse{Error: NewServiceError("NOT_FOUND", "missing")}, nil).Once()

		_, err := NewInvoker(nil, WithInvokerClient(client)).Invoke(context.Background(), "echo", nil)
		var serviceErr *ServiceError
		require.True(t, errors.As(err, &serviceErr))
		assert.Equal(t, "NOT_FOUND", serviceErr.ErrorCode())
		assert.Equal(t, "missing", serviceErr.Message)
	})

	// Test: ask failures are unavailable
	t.Run("ask failure", func(t *testing.T) {
		client := &MockActorClient{}
		client.On("Ask", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("mailbox closed")).Once()

		_, err := NewInvoker(nil, WithInvokerClient(client)).Invoke(context.Background(), "echo", nil)
		var serviceErr *ServiceError
		require.True(t, errors.As(err, &serviceErr))
		assert.Equal(t, CodeUnavailable, serviceErr.Code)
	})

	// Test: against a deployed actor
	t.Run("deployed actor", func(t *testing.T) {
		runtime := newTestRuntime()
		ctx := context.Background()
		require.NoError(t, runtime.Start(ctx))
		defer runtime.Shutdown(ctx)

		actorID, err := runtime.Deploy(ctx, createTestServicePackage(t, echoHandler()))
		require.NoError(t, err)

		invoker := NewInvoker(runtime.PID(actorID), WithInvokerTimeout(time.Second))
		out, err := invoker.Invoke(ctx, "echo", []byte(`"hi"`))
		require.NoError(t, err)
		assert.Equal(t, []byte(`"hi"`), out)

		_, err = invoker.Invoke(ctx, "missing", []byte(`{}`))
		var serviceErr *ServiceError
		require.True(t, errors.As(err, &serviceErr))
		assert.Equal(t, CodeValidation, serviceErr.Code)
	})
}
