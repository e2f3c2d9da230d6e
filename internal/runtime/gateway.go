package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/tochemey/goakt/v2/actors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultPathPrefix = "/rpc/"
	defaultAskTimeout = 30 * time.Second
	maxRequestBody    = 1 << 20
)

// ActorClient provides an interface for actor communication
type ActorClient interface {
	Ask(ctx context.Context, pid *actors.PID, req *ServiceRequest, timeout time.Duration) (*ServiceResponse, error)
}

type defaultActorClient struct{}

func (c *defaultActorClient) Ask(ctx context.Context, pid *actors.PID, req *ServiceRequest, timeout time.Duration) (*ServiceResponse, error) {
	msg, err := req.Proto()
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	reply, err := actors.Ask(ctx, pid, msg, timeout)
	if err != nil {
		return nil, err
	}

	return ParseServiceResponse(reply)
}

// Gateway exposes deployed services over HTTP.
//
// Every method is reachable as POST {prefix}{actorID}/{method} with a JSON
// body. Failures are answered with {"code": "...", "message": "..."}.
type Gateway interface {
	// Handler returns the HTTP handler for the gateway
	Handler() http.Handler

	// UpdateService registers or replaces the routes of a deployed service
	UpdateService(ctx context.Context, actorID string, pkg *ServicePackage, actorPID *actors.PID) error

	// RemoveService drops the routes of a service
	RemoveService(actorID string)

	// Shutdown gracefully shuts down the gateway
	Shutdown(ctx context.Context) error
}

// GatewayOption configures the gateway
type GatewayOption func(*gateway)

// WithPathPrefix sets the URL prefix of all service routes. Default "/rpc/".
func WithPathPrefix(prefix string) GatewayOption {
	return func(g *gateway) {
		if !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		g.prefix = prefix
	}
}

// WithAskTimeout bounds the wait for an actor reply. Default 30s.
func WithAskTimeout(timeout time.Duration) GatewayOption {
	return func(g *gateway) {
		g.askTimeout = timeout
	}
}

// WithActorClient replaces the client used to reach actors
func WithActorClient(client ActorClient) GatewayOption {
	return func(g *gateway) {
		g.client = client
	}
}

// WithRegisterer registers the gateway metrics on reg instead of a private registry
func WithRegisterer(reg prometheus.Registerer) GatewayOption {
	return func(g *gateway) {
		g.registerer = reg
	}
}

// WithGatewayLogger sets the gateway logger
func WithGatewayLogger(logger zerolog.Logger) GatewayOption {
	return func(g *gateway) {
		g.logger = logger
	}
}

// NewGateway creates a new HTTP gateway
func NewGateway(opts ...GatewayOption) Gateway {
	g := &gateway{
		prefix:     defaultPathPrefix,
		askTimeout: defaultAskTimeout,
		client:     &defaultActorClient{},
		registerer: prometheus.NewRegistry(),
		logger:     zerolog.Nop(),
		services:   make(map[string]*serviceRoute),
	}

	for _, opt := range opts {
		opt(g)
	}

	g.logger = g.logger.With().Str("component", "gateway").Logger()
	g.metrics = newGatewayMetrics(g.registerer)

	g.mux = http.NewServeMux()
	g.mux.HandleFunc("POST "+g.prefix+"{service}/{method}", g.serveCall)

	return g
}

type gateway struct {
	prefix     string
	askTimeout time.Duration
	client     ActorClient
	registerer prometheus.Registerer
	logger     zerolog.Logger
	metrics    *gatewayMetrics

	mux      *http.ServeMux
	mu       sync.RWMutex
	services map[string]*serviceRoute
}

type serviceRoute struct {
	actorID  string
	pkg      *ServicePackage
	actorPID *actors.PID
}

func (g *gateway) Handler() http.Handler {
	return g.mux
}

func (g *gateway) UpdateService(ctx context.Context, actorID string, pkg *ServicePackage, actorPID *actors.PID) error {
	if pkg == nil {
		return fmt.Errorf("service package cannot be nil")
	}
	if actorID == "" {
		return fmt.Errorf("actor id cannot be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.services[actorID] = &serviceRoute{
		actorID:  actorID,
		pkg:      pkg,
		actorPID: actorPID,
	}

	g.logger.Info().
		Str("actor_id", actorID).
		Str("pattern", g.prefix+actorID+"/{method}").
		Msg("registered service routes")

	return nil
}

func (g *gateway) RemoveService(actorID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.services, actorID)
}

func (g *gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.services = make(map[string]*serviceRoute)
	return nil
}

func (g *gateway) route(actorID string) (*serviceRoute, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	route, ok := g.services[actorID]
	return route, ok
}

func (g *gateway) serveCall(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	service := r.PathValue("service")
	method := r.PathValue("method")

	ctx, span := otel.Tracer("eventsphere/runtime").Start(r.Context(), "gateway "+service+"/"+method)
	defer span.End()
	span.SetAttributes(
		attribute.String("rpc.service", service),
		attribute.String("rpc.method", method),
	)

	code := "OK"
	label := service
	defer func() {
		g.metrics.observe(label, method, code, time.Since(start))
		if code != "OK" {
			span.SetStatus(codes.Error, code)
		}
	}()

	fail := func(status int, errCode, message string) {
		code = errCode
		writeError(w, status, errCode, message)
	}

	route, ok := g.route(service)
	if !ok {
		label = "unknown"
		fail(http.StatusNotFound, CodeNotFound, fmt.Sprintf("service %s not found", service))
		return
	}
	if _, ok := route.pkg.GetMethod(method); !ok {
		fail(http.StatusNotFound, CodeNotFound, fmt.Sprintf("method %s not found in service %s", method, service))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		fail(http.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("failed to read request body: %v", err))
		return
	}
	defer r.Body.Close()

	if len(body) > 0 && !json.Valid(body) {
		fail(http.StatusBadRequest, "INVALID_ARGUMENT", "request body is not valid JSON")
		return
	}

	req := &ServiceRequest{
		ID:     uuid.NewString(),
		Method: method,
		Input:  body,
		Metadata: map[string]string{
			"request_id": r.Header.Get("X-Request-Id"),
		},
	}

	resp, err := g.client.Ask(ctx, route.actorPID, req, g.askTimeout)
	if err != nil {
		g.logger.Error().
			Err(err).
			Str("request_id", req.ID).
			Str("actor_id", service).
			Str("method", method).
			Msg("actor request failed")

		if errors.Is(err, context.DeadlineExceeded) {
			fail(http.StatusGatewayTimeout, CodeTimeout, fmt.Sprintf("actor request timed out: %v", err))
			return
		}
		fail(http.StatusInternalServerError, CodeInternal, fmt.Sprintf("actor request failed: %v", err))
		return
	}

	if resp.Error != nil || !resp.Success {
		serviceErr := resp.Error
		if serviceErr == nil {
			serviceErr = NewServiceError(CodeInternal, "service call failed")
		}
		fail(StatusForCode(serviceErr.Code), serviceErr.Code, serviceErr.Message)
		return
	}

	output := resp.Output
	if len(output) == 0 {
		output = []byte("null")
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", req.ID)
	w.WriteHeader(http.StatusOK)
	w.Write(output)
}

// StatusForCode maps a wire error code to an HTTP status
func StatusForCode(code string) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case "ALREADY_EXISTS":
		return http.StatusConflict
	case "INVALID_ARGUMENT", CodeValidation:
		return http.StatusBadRequest
	case "UNAUTHENTICATED":
		return http.StatusUnauthorized
	case "PERMISSION_DENIED":
		return http.StatusForbidden
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(NewServiceError(code, message))
}

type gatewayMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newGatewayMetrics(reg prometheus.Registerer) *gatewayMetrics {
	m := &gatewayMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventsphere",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Service calls handled by the gateway.",
		}, []string{"service", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eventsphere",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Latency of service calls handled by the gateway.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method"}),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}

	return m
}

func (m *gatewayMetrics) observe(service, method, code string, elapsed time.Duration) {
	m.requests.WithLabelValues(service, method, code).Inc()
	m.duration.WithLabelValues(service, method).Observe(elapsed.Seconds())
}
