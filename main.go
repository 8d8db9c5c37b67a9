package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/graphmux/graphmux/internal/commands"
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
		Name:    "graphmux",
		Usage:   "Multi-schema GraphQL gateway: model-driven schemas, persisted queries, and a per-field middleware pipeline.",
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error, fatal, panic)",
				Sources: cli.EnvVars("GRAPHMUX_LOG_LEVEL"),
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to graphmux.yaml (default: search cwd and parents)",
				Sources: cli.EnvVars("GRAPHMUX_CONFIG"),
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			level, err := zerolog.ParseLevel(c.String("log-level"))
			if err != nil {
				return ctx, fmt.Errorf("failed to parse log level: %w", err)
			}

			log.Logger = log.Level(level)
			ctrl.Flags.LogLevel = c.String("log-level")
			ctrl.Flags.Config = c.String("config")

			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create a new graphmux project",
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Init(ctx)
				},
			},
			{
				Name:  "serve",
				Usage: "Serve every registered GraphQL schema",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "host",
						Usage: "listen host (overrides config)",
					},
					&cli.IntFlag{
						Name:  "port",
						Usage: "listen port (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "re-run schema discovery when app manifests change",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Serve(ctx, commands.ServeOptions{
						Host:  c.String("host"),
						Port:  int(c.Int("port")),
						Watch: c.Bool("watch"),
					})
				},
			},
			{
				Name:  "validate",
				Usage: "Validate every registered schema against the model catalog",
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Validate(ctx)
				},
			},
			{
				Name:  "schemas",
				Usage: "List registered schemas",
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Schemas(ctx)
				},
			},
		},
	}

	ctx := context.Background()

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("failed to run graphmux")
	}
}
