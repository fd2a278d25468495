package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"tubewatch/config"
	"tubewatch/handlers"
	"tubewatch/logging"
)

// NewApp builds the tubewatch command tree
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "tubewatch",
		Usage:   "Self-hosted video library with live job progress",
		Version: handlers.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "tubewatch.toml",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			tailCommand(),
			statusCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the web server, job workers and channel refresh loop",
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	logger := logging.New(nil, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	srv, err := NewServer(Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Warn("shutdown", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
