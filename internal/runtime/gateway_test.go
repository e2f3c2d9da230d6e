package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tochemey/goakt/v2/actors"
)

// Test Plan for Gateway:
// - Unknown service and unknown method answer 404
// - Non-JSON bodies answer 400 before reaching the actor
// - Successful calls return the actor output verbatim
// - Service error codes map to HTTP statuses
// - Ask failures map to 504 on deadline and 500 otherwise
// - Removed services stop routing
// - Calls are counted per service, method and code

// MockActorClient is a mock implementation of ActorClient
type MockActorClient struct {
	mock.Mock
}

func (m *MockActorClient) Ask(ctx context.Context, pid *actors.PID, req *ServiceRequest, timeout time.Duration) (*ServiceResponse, error) {
	args := m.Called(ctx, pid, req, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ServiceResponse), args.Error(1)
}

const testActorID = "test.TestService.v1"

func newTestGateway(t *testing.T, client ActorClient, opts ...GatewayOption) (Gateway, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	opts = append([]GatewayOption{WithActorClient(client), WithRegisterer(reg)}, opts...)

	gw := NewGateway(opts...)
	require.NoError(t, gw.UpdateService(context.Background(), testActorID, createTestServicePackage(t, echoHandler()), nil))
	return gw, reg
}

func call(gw Gateway, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *ServiceError {
	t.Helper()
	var serviceErr ServiceError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &serviceErr))
	return &serviceErr
}

func TestGateway_Routing(t *testing.T) {
	// Test: unknown service
	t.Run("unknown service", func(t *testing.T) {
		client := &MockActorClient{}
		gw, _ := newTestGateway(t, client)

		rec := call(gw, "/rpc/missing.Service.v1/echo", `{}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, CodeNotFound, decodeError(t, rec).Code)
		client.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	// Test: unknown method
	t.Run("unknown method", func(t *testing.T) {
		client := &MockActorClient{}
		gw, _ := newTestGateway(t, client)

		rec := call(gw, "/rpc/"+testActorID+"/missing", `{}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "method missing not found")
	})

	// Test: only POST is routed
	t.Run("wrong verb", func(t *testing.T) {
		gw, _ := newTestGateway(t, &MockActorClient{})

		req := httptest.NewRequest(http.MethodGet, "/rpc/"+testActorID+"/echo", nil)
		rec := httptest.NewRecorder()
		gw.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	// Test: custom prefix
	t.Run("custom prefix", func(t *testing.T) {
		client := &MockActorClient{}
		client.On("Ask", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&ServiceResponse{Success: true, Output: []byte(`{}`)}, nil).Once()
		gw, _ := newTestGateway(t, client, WithPathPrefix("api"))

		rec := call(gw, "/api/"+testActorID+"/echo", `{}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	// Test: removed service
	t.Run("removed service", func(t *testing.T) {
		gw, _ := newTestGateway(t, &MockActorClient{})
		gw.RemoveService(testActorID)

		rec := call(gw, "/rpc/"+testActorID+"/echo", `{}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	// Test: update validation
	t.Run("update validation", func(t *testing.T) {
		gw := NewGateway()
		assert.Error(t, gw.UpdateService(context.Background(), testActorID, nil, nil))
		assert.Error(t, gw.UpdateService(context.Background(), "", createTestServicePackage(t, echoHandler()), nil))
	})
}

func TestGateway_Call(t *testing.T) {
	// Test: invalid JSON never reaches the actor
	t.Run("invalid json", func(t *testing.T) {
		client := &MockActorClient{}
		gw, _ := newTestGateway(t, client)

		rec := call(gw, "/rpc/"+testActorID+"/echo", `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_ARGUMENT", decodeError(t, rec).Code)
		client.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	// Test: successful call
	t.Run("success", func(t *testing.T) {
		client := &MockActorClient{}
		client.On("Ask", mock.Anything, mock.Anything, mock.MatchedBy(func(req *ServiceRequest) bool {
			return req.Method == "echo" &&
				string(req.Input) == `{"name":"Alice"}` &&
				req.ID != "" &&
				req.Metadata["request_id"] == "abc"
		}), 2*time.Second).Return(&ServiceResponse{
			Success: true,
			Output:  []byte(`{"message":"Hello, Alice!"}`),
		}, nil).Once()
		gw, _ := newTestGateway(t, client, WithAskTimeout(2*time.Second))

		req := httptest.NewRequest(http.MethodPost, "/rpc/"+testActorID+"/echo", strings.NewReader(`{"name":"Alice"}`))
		req.Header.Set("X-Request-Id", "abc")
		rec := httptest.NewRecorder()
		gw.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
		assert.JSONEq(t, `{"message":"Hello, Alice!"}`, rec.Body.String())
		client.AssertExpectations(t)
	})

	// Test: empty output is null
	t.Run("empty output", func(t *testing.T) {
		client := &MockActorClient{}
		client.On("Ask", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&ServiceResponse{Success: true}, nil).Once()
		gw, _ := newTestGateway(t, client)

		rec := call(gw, "/rpc/"+testActorID+"/noInput", ``)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "null", rec.Body.String())
	})

	// Test: service error codes
	t.Run("service errors", func(t *testing.T) {
		cases := map[string]int{
			"NOT_FOUND":        http.StatusNotFound,
			"ALREADY_EXISTS":   http.StatusConflict,
			"INVALID_ARGUMENT": http.StatusBadRequest,
			CodeValidation:     http.StatusBadRequest,
			"UNAUTHENTICATED":  http.StatusUnauthorized,
			CodeExecution:      http.StatusInternalServerError,
		}
		for code, status := range cases {
			client := &MockActorClient{}
			client.On("Ask", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(&ServiceResponse{Error: NewServiceError(code, "failed")}, nil).Once()
			gw, _ := newTestGateway(t, client)

			rec := call(gw, "/rpc/"+testActorID+"/echo", `{}`)
			assert.Equal(t, status, rec.Code, code)
			serviceErr := decodeError(t, rec)
			assert.Equal(t, code, serviceErr.Code)
			assert.Equal(t, "failed", serviceErr.Message)
		}
	})

	// Test: unsuccessful response without error
	t.Run("failure without error", func(t *testing.T) {
		client := &MockActorClient{}
		client.On("Ask", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&ServiceResponse{Success: false}, nil).Once()
		gw, _ := newTestGateway(t, client)

		rec := call(gw, "/rpc/"+testActorID+"/echo", `{}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, CodeInternal, decodeError(t, rec).Code)
	})

	// Test: ask deadline
	t.Run("ask timeout", func(t *testing.T) {
		client := &MockActorClient{}
		client.On("Ask", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, context.DeadlineExceeded).Once()
		gw, _ := newTestGateway(t, client)

		rec := call(gw, "/rpc/"+testActorID+"/echo", `{}`)
		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
		assert.Equal(t, CodeTimeout, decodeError(t, rec).Code)
	})

	// Test: ask failure
	t.Run("ask failure", func(t *testing.T) {
		client := &MockActorClient{}
		client.On("Ask", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("mailbox closed")).Once()
		gw, _ := newTestGateway(t, client)

		rec := call(gw, "/rpc/"+testActorID+"/echo", `{}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "mailbox closed")
	})
}

func TestGateway_Metrics(t *testing.T) {
	client := &MockActorClient{}
	client.On("Ask", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&ServiceResponse{Success: true, Output: []byte(`{}`)}, nil)
	gw, reg := newTestGateway(t, client)

	call(gw, "/rpc/"+testActorID+"/echo", `{}`)
	call(gw, "/rpc/"+testActorID+"/echo", `{}`)
	call(gw, "/rpc/nope/echo", `{}`)

	// Test: one series per service, method and code
	count, err := testutil.GatherAndCount(reg, "eventsphere_gateway_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	expected := `
# HELP eventsphere_gateway_requests_total Service calls handled by the gateway.
# TYPE eventsphere_gateway_requests_total counter
eventsphere_gateway_requests_total{code="NOT_FOUND",method="echo",service="unknown"} 1
eventsphere_gateway_requests_total{code="OK",method="echo",service="test.TestService.v1"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "eventsphere_gateway_requests_total"))
}

func TestGateway_Shutdown(t *testing.T) {
	gw, _ := newTestGateway(t, &MockActorClient{})
	require.NoError(t, gw.Shutdown(context.Background()))

	rec := call(gw, "/rpc/"+testActorID+"/echo", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, StatusForCode("PERMISSION_DENIED"))
	assert.Equal(t, http.StatusServiceUnavailable, StatusForCode(CodeUnavailable))
	assert.Equal(t, http.StatusGatewayTimeout, StatusForCode(CodeTimeout))
	assert.Equal(t, http.StatusInternalServerError, StatusForCode("SOMETHING_ELSE"))
}
