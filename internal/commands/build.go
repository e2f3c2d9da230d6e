package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/eventsphere/eventsphere/internal/build"
)

// BuildOptions configure the build command
type BuildOptions struct {
	// Output overrides the configured assets directory.
	Output string

	// runner replaces the go toolchain, for tests.
	runner build.CommandRunner
}

// Build compiles the browser frontend into the assets directory.
func (c *Controller) Build(ctx context.Context, opts BuildOptions) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	output := cfg.Server.AssetsDir
	if opts.Output != "" {
		output = opts.Output
	}

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	builderOpts := []build.Option{build.WithLogger(c.Logger)}
	if opts.runner != nil {
		builderOpts = append(builderOpts, build.WithRunner(opts.runner))
	}

	artifacts, err := build.NewFrontendBuilder(root, output, builderOpts...).Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build frontend: %w", err)
	}

	c.Logger.Info().
		Str("wasm", artifacts.WASMPath).
		Str("loader", artifacts.LoaderPath).
		Msg("build complete")
	return nil
}
