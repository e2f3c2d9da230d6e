// Package commands contains the CLI commands for the application
package commands

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/eventsphere/eventsphere/internal/config"
)

// Flags are the global command line flags. An empty LogLevel defers to the
// log_level of the configuration.
type Flags struct {
	LogLevel   string
	ConfigPath string
}

// Controller runs the eventsphere commands
type Controller struct {
	Flags  *Flags
	Logger zerolog.Logger
}

func (c *Controller) loadConfig() (*config.Config, error) {
	path, level := "", ""
	if c.Flags != nil {
		path, level = c.Flags.ConfigPath, c.Flags.LogLevel
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if level != "" {
		cfg.LogLevel = level
	}
	if cfg.LogLevel != "" {
		lvl, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to parse log level: %w", err)
		}
		c.Logger = c.Logger.Level(lvl)
	}
	return cfg, nil
}
