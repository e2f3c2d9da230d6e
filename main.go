package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/eventsphere/eventsphere/internal/commands"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	short := commit
	if len(commit) > 7 {
		short = commit[:7]
	}

	return fmt.Sprintf("%s (%s) %s", version, short, date)
}

func main() {
	ctrl := &commands.Controller{
		Flags: &commands.Flags{},
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := &cli.Command{
		Name:    "eventsphere",
		Usage:   "Event ticketing backend with a greeting page",
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error, fatal, panic)",
				Sources: cli.EnvVars("LOG_LEVEL"),
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to eventsphere.json (default: searched from the working directory)",
				Sources: cli.EnvVars("EVENTSPHERE_CONFIG"),
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			level, err := zerolog.ParseLevel(c.String("log-level"))
			if err != nil {
				return ctx, fmt.Errorf("failed to parse log level: %w", err)
			}

			log.Logger = log.Level(level)
			if c.IsSet("log-level") {
				ctrl.Flags.LogLevel = c.String("log-level")
			}
			ctrl.Flags.ConfigPath = c.String("config")
			ctrl.Logger = log.Logger

			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the backend, the service gateway and the web page",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address"},
					&cli.StringFlag{Name: "db", Usage: "SQLite database path"},
					&cli.StringFlag{Name: "assets", Usage: "directory holding main.wasm and wasm_exec.js"},
					&cli.BoolFlag{Name: "dev", Usage: "reload the page assets when they change"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Serve(ctx, commands.ServeOptions{
						Addr:      c.String("addr"),
						DBPath:    c.String("db"),
						AssetsDir: c.String("assets"),
						Dev:       c.Bool("dev"),
					})
				},
			},
			{
				Name:  "build",
				Usage: "Compile the browser frontend to main.wasm",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Usage: "output directory (default: the configured assets directory)"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Build(ctx, commands.BuildOptions{Output: c.String("output")})
				},
			},
			{
				Name:  "greet",
				Usage: "Ask a running server for a greeting",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "name to greet (prompted for when omitted)"},
					&cli.StringFlag{Name: "endpoint", Usage: "service endpoint, e.g. http://localhost:8080/rpc/eventsphere.Backend.v1"},
					&cli.BoolFlag{Name: "plain", Usage: "no spinner"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Greet(ctx, commands.GreetOptions{
						Name:     c.String("name"),
						NameSet:  c.IsSet("name"),
						Endpoint: c.String("endpoint"),
						Plain:    c.Bool("plain"),
					})
				},
			},
		},
	}

	ctx := context.Background()

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("failed to run eventsphere")
	}
}
