package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"agora/api/internal/store"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations, or roll back the latest with --down",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "down", Usage: "roll back one migration"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := store.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer db.Close()

			if cmd.Bool("down") {
				err = store.RollbackMigrations(ctx, db, cfg.MigrationsDir)
			} else {
				err = store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
			}
			if err != nil {
				return err
			}

			version, dirty, ok, err := store.MigrationVersion(ctx, db, cfg.MigrationsDir)
			if err != nil {
				return err
			}
			if !ok {
				logger.Info("database has no migrations applied")
				return nil
			}
			logger.Info("migrations complete", "version", version, "dirty", dirty)
			return nil
		},
	}
}
