package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"agora/api/internal/app"
	"agora/api/internal/metrics"
	"agora/api/internal/navcache"
	"agora/api/internal/store"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the sidebar HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address; overrides API_ADDR"},
			&cli.StringSliceFlag{Name: "seed", Usage: "community ids to seed with a starter sidebar when empty"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr := cmd.String("addr"); addr != "" {
				cfg.Addr = addr
			}

			db, err := store.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer db.Close()

			if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
				return fmt.Errorf("migrations failed: %w", err)
			}

			m := metrics.NewDefault()
			m.WatchDB(db, "agora")
			opts := []app.Option{app.WithLogger(logger), app.WithMetrics(m)}

			if strings.TrimSpace(cfg.RedisURL) != "" {
				cache, err := navcache.NewRedisCache(cfg.RedisURL, cfg.SnapshotTTL)
				if err != nil {
					return fmt.Errorf("redis connection failed: %w", err)
				}
				defer cache.Close()
				logger.Info("caching nav snapshots in redis", "ttl", cfg.SnapshotTTL)
				opts = append(opts, app.WithCache(cache))
			}

			service := app.New(cfg, m.WrapStore(store.NewPostgresStore(db)), opts...)
			for _, communityID := range cmd.StringSlice("seed") {
				if err := service.Bootstrap(ctx, communityID); err != nil {
					logger.Warn("bootstrap failed (will retry on next restart)", "community", communityID, "err", err)
				}
			}

			server := &http.Server{
				Addr:              cfg.Addr,
				Handler:           app.NewHTTPServer(service, cfg.CORSOrigin, m).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("agora API listening", "addr", cfg.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
}
