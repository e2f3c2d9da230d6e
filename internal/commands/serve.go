package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/eventsphere/eventsphere/internal/backend"
	"github.com/eventsphere/eventsphere/internal/backend/sqlite"
	"github.com/eventsphere/eventsphere/internal/client"
	"github.com/eventsphere/eventsphere/internal/config"
	"github.com/eventsphere/eventsphere/internal/dev"
	"github.com/eventsphere/eventsphere/internal/runtime"
	"github.com/eventsphere/eventsphere/internal/web"
)

const shutdownTimeout = 30 * time.Second

// ServeOptions override the configuration of the serve command. Zero values
// keep the configured value.
type ServeOptions struct {
	Addr      string
	DBPath    string
	AssetsDir string
	Dev       bool
}

func (o ServeOptions) apply(cfg *config.Config) {
	if o.Addr != "" {
		cfg.Server.Addr = o.Addr
	}
	if o.DBPath != "" {
		cfg.Database.Path = o.DBPath
	}
	if o.AssetsDir != "" {
		cfg.Server.AssetsDir = o.AssetsDir
	}
	if o.Dev {
		cfg.Dev.Enabled = true
	}
}

// Serve runs the backend actor, the gateway and the web server until a
// signal arrives or ctx is cancelled.
func (c *Controller) Serve(ctx context.Context, opts ...ServeOptions) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if len(opts) > 0 {
		opts[0].apply(cfg)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := newApp(ctx, cfg, c.Logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := a.shutdown(shutdownCtx); err != nil {
			c.Logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	var watcher *dev.AssetWatcher
	if cfg.Dev.Enabled {
		watcher, err = a.watchAssets(cfg)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.web.Start(ctx, cfg.Server.Addr); err != nil {
			errChan <- fmt.Errorf("web server error: %w", err)
		}
	}()

	if watcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("asset watcher error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case sig := <-sigChan:
		c.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case runErr = <-errChan:
		c.Logger.Error().Err(runErr).Msg("server error")
	case <-ctx.Done():
	}

	cancel()
	wg.Wait()

	c.Logger.Info().Msg("serve shutdown complete")
	return runErr
}

// app wires the storage, runtime, gateway and web server of one process.
type app struct {
	logger     zerolog.Logger
	store      *sqlite.Store
	runtime    *runtime.ActorRuntime
	gateway    runtime.Gateway
	web        *web.Server
	actorID    string
	pkg        *runtime.ServicePackage
	deployedAt time.Time
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.shutdown(context.Background())
		}
	}()

	a.store, err = sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	askTimeout := cfg.Server.AskTimeout.Std()
	a.runtime = runtime.NewActorRuntime(logger, runtime.WithDefaultTimeout(askTimeout))
	if err = a.runtime.Start(ctx); err != nil {
		a.runtime = nil
		return nil, fmt.Errorf("failed to start runtime: %w", err)
	}

	svc := backend.NewService(a.store, backend.WithLogger(logger))
	a.pkg, err = svc.Package()
	if err != nil {
		return nil, fmt.Errorf("failed to build service package: %w", err)
	}
	a.actorID, err = a.runtime.Deploy(ctx, a.pkg)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy service: %w", err)
	}
	a.deployedAt = time.Now().UTC()
	pid := a.runtime.PID(a.actorID)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.gateway = runtime.NewGateway(
		runtime.WithAskTimeout(askTimeout),
		runtime.WithRegisterer(registry),
		runtime.WithGatewayLogger(logger),
	)
	if err = a.gateway.UpdateService(ctx, a.actorID, a.pkg, pid); err != nil {
		return nil, fmt.Errorf("failed to expose service: %w", err)
	}

	local := client.NewLocal(
		runtime.NewInvoker(pid, runtime.WithInvokerTimeout(askTimeout)),
		client.WithLogger(logger),
	)

	a.web, err = web.New(web.Config{
		AssetsDir: cfg.Server.AssetsDir,
		Greeter:   local,
		Gateway:   a.gateway.Handler(),
		Services:  a.services,
		Registry:  registry,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create web server: %w", err)
	}

	return a, nil
}

func (a *app) services() []web.DeployedService {
	if !a.runtime.IsDeployed(a.actorID) {
		return nil
	}

	methods := make([]string, 0, len(a.pkg.Descriptor.Methods))
	for _, m := range a.pkg.Descriptor.Methods {
		methods = append(methods, m.Name)
	}

	return []web.DeployedService{{
		ID:         a.actorID,
		Endpoint:   "/rpc/" + a.actorID,
		Methods:    methods,
		DeployedAt: a.deployedAt,
	}}
}

func (a *app) watchAssets(cfg *config.Config) (*dev.AssetWatcher, error) {
	watcher, err := dev.NewAssetWatcher(
		func(path string, op fsnotify.Op) {
			a.web.BumpAssetVersion()
		},
		dev.WithPatterns(cfg.Dev.Watch...),
		dev.WithExcludes(cfg.Dev.Exclude...),
		dev.WithWatcherLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}

	if err := watcher.AddDirectory(cfg.Server.AssetsDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch assets: %w", err)
	}

	a.logger.Info().Str("dir", cfg.Server.AssetsDir).Msg("watching assets")
	return watcher, nil
}

// shutdown stops the gateway, then the runtime, then closes the store.
func (a *app) shutdown(ctx context.Context) error {
	var errs []error

	if a.gateway != nil {
		if err := a.gateway.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("gateway: %w", err))
		}
	}
	if a.runtime != nil {
		if err := a.runtime.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("runtime: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
		a.store = nil
	}

	return errors.Join(errs...)
}
