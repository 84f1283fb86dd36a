package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"agora/api/internal/app"
	"agora/api/internal/metrics"
	"agora/api/internal/navclient"
	"agora/api/internal/reorder"
	"agora/api/internal/store"
)

// snapshotPersister is what the drag tool needs from its backend: the
// starting snapshot plus somewhere to commit.
type snapshotPersister interface {
	reorder.Persister
	Snapshot(ctx context.Context) (reorder.Snapshot, error)
}

type localBackend struct {
	*app.CommunityPersister
	service     *app.Service
	communityID string
}

func (b localBackend) Snapshot(ctx context.Context) (reorder.Snapshot, error) {
	return b.service.Snapshot(ctx, b.communityID)
}

func dragCommand() *cli.Command {
	return &cli.Command{
		Name:  "drag",
		Usage: "Replay a scripted drag gesture against a community's sidebar and print the result",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "community", Usage: "community id", Required: true},
			&cli.StringFlag{Name: "script", Usage: `JSON array of drag events ("-" for stdin)`, Value: "-"},
			&cli.BoolFlag{Name: "local", Usage: "commit straight to the database instead of through the API"},
			&cli.StringFlag{Name: "api-url", Usage: "API base URL; overrides AGORA_API_URL"},
			&cli.BoolFlag{Name: "check", Usage: "verify tree invariants after every step"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			events, err := readScript(cmd.String("script"))
			if err != nil {
				return err
			}

			communityID := cmd.String("community")
			m := metrics.NewDefault()
			var backend snapshotPersister
			if cmd.Bool("local") {
				db, err := store.Open(ctx, cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("database connection failed: %w", err)
				}
				defer db.Close()
				service := app.New(cfg, m.WrapStore(store.NewPostgresStore(db)), app.WithLogger(logger), app.WithMetrics(m))
				backend = localBackend{CommunityPersister: service.Persister(communityID), service: service, communityID: communityID}
			} else {
				apiURL := cfg.APIURL
				if u := cmd.String("api-url"); u != "" {
					apiURL = u
				}
				backend = navclient.New(apiURL, communityID)
			}

			snapshot, err := backend.Snapshot(ctx)
			if err != nil {
				return fmt.Errorf("load sidebar: %w", err)
			}

			opts := []reorder.Option{reorder.WithLogger(logger), reorder.WithPersistTimeout(cfg.PersistTimeout)}
			if cmd.Bool("check") {
				opts = append(opts, reorder.WithCheck())
			}
			engine, err := reorder.NewEngine(snapshot, backend, opts...)
			if err != nil {
				return err
			}
			failed := 0
			engine.OnFailure(func(f reorder.Failure) {
				failed++
				m.EngineFailure(f.Reverted)
				logger.Error("commit rejected", "seq", f.Commit.Seq, "kind", f.Commit.Kind, "reverted", f.Reverted, "err", f.Err)
			})

			ch := make(chan reorder.Event, len(events))
			for _, ev := range events {
				ch <- ev
			}
			close(ch)
			if err := engine.Run(ctx, ch); err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(engine.View()); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d commit(s) rejected", failed)
			}
			return nil
		},
	}
}

func readScript(path string) ([]reorder.Event, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		r = f
	}
	var events []reorder.Event
	if err := json.NewDecoder(r).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	return events, nil
}
