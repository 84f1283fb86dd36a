package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"agora/api/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cli.Command{
		Name:  "agora-api",
		Usage: "Community sidebar API and drag-and-drop reorder tools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error; overrides AGORA_LOG_LEVEL",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			dragCommand(),
		},
	}
	if err := root.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the config and builds the process logger from it.
func loadConfig(cmd *cli.Command) (config.Config, *log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Level: level})
	log.SetDefault(logger)
	return cfg, logger, nil
}
