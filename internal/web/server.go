// Package web serves the greeting page, its assets and the service gateway.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/eventsphere/eventsphere/internal/greeter"
)

//go:embed templates/*.html
var templates embed.FS

const (
	shutdownTimeout = 5 * time.Second
	maxFormBody     = "64K"
)

// DeployedService describes one service reachable through the gateway.
type DeployedService struct {
	ID         string    `json:"id"`
	Endpoint   string    `json:"endpoint"`
	Methods    []string  `json:"methods"`
	DeployedAt time.Time `json:"deployed_at"`
}

// Config holds the dependencies of the web server.
type Config struct {
	// AssetsDir holds wasm_exec.js and main.wasm. Optional.
	AssetsDir string

	// Greeter answers form submissions made without JavaScript.
	Greeter greeter.Greeter

	// Gateway serves /rpc/*. Optional.
	Gateway http.Handler

	// Services lists deployed services for the admin endpoint. Optional.
	Services func() []DeployedService

	// Registry receives the HTTP metrics and is exposed on /metrics.
	Registry *prometheus.Registry

	// ServiceName names the server in traces. Default "eventsphere".
	ServiceName string

	Logger zerolog.Logger
}

// Server is the eventsphere HTTP server.
type Server struct {
	echo    *echo.Echo
	cfg     Config
	logger  zerolog.Logger
	page    *template.Template
	version atomic.Int64
	server  *http.Server
}

// New creates the server and registers its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Greeter == nil {
		return nil, fmt.Errorf("greeter is required")
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "eventsphere"
	}

	page, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "web").Logger(),
		page:   page,
	}
	s.version.Store(time.Now().Unix())

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetOutput(io.Discard)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(otelecho.Middleware(cfg.ServiceName))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "eventsphere",
		Registerer: cfg.Registry,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Debug()
			if v.Error != nil {
				event = s.logger.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))

	e.GET("/", s.handleIndex)
	e.POST("/greet", s.handleGreet, middleware.BodyLimit(maxFormBody))
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: cfg.Registry}))
	e.GET("/api/v1/services", s.handleListServices)

	if cfg.AssetsDir != "" {
		e.Static("/assets", cfg.AssetsDir)
	}
	if cfg.Gateway != nil {
		e.Any("/rpc/*", echo.WrapHandler(cfg.Gateway))
	}

	s.echo = e
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// BumpAssetVersion changes the version appended to asset URLs so browsers
// fetch rebuilt assets.
func (s *Server) BumpAssetVersion() {
	v := s.version.Add(1)
	s.logger.Info().Int64("version", v).Msg("asset version bumped")
}

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("web server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

type assetInfo struct {
	wasm    bool
	version string
}

func (s *Server) assets() assetInfo {
	info := assetInfo{version: strconv.FormatInt(s.version.Load(), 10)}
	if s.cfg.AssetsDir == "" {
		return info
	}
	info.wasm = fileExists(filepath.Join(s.cfg.AssetsDir, "main.wasm")) &&
		fileExists(filepath.Join(s.cfg.AssetsDir, "wasm_exec.js"))
	return info
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func (s *Server) render(c echo.Context, status int, view *pageView) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return s.page.Execute(c.Response(), view.data(s.assets()))
}

func (s *Server) handleIndex(c echo.Context) error {
	return s.render(c, http.StatusOK, newPageView(""))
}

type greetForm struct {
	Name string `form:"name"`
}

func (s *Server) handleGreet(c echo.Context) error {
	var form greetForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	view := newPageView(form.Name)
	fg := greeter.NewFormGreeter(view, s.cfg.Greeter,
		greeter.WithLogger(s.logger),
		greeter.WithFailurePolicy(greeter.RecoverAndReport),
	)

	status := http.StatusOK
	if _, err := fg.Submit(c.Request().Context(), nil).Wait(); err != nil {
		status = http.StatusBadGateway
	}

	return s.render(c, status, view)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleListServices(c echo.Context) error {
	services := []DeployedService{}
	if s.cfg.Services != nil {
		services = append(services, s.cfg.Services()...)
	}
	return c.JSON(http.StatusOK, map[string]any{"services": services})
}
