package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/kvmon/internal/api"
	"github.com/user/kvmon/internal/client"
	"github.com/user/kvmon/internal/config"
	"github.com/user/kvmon/internal/db"
	"github.com/user/kvmon/internal/hub"
	"github.com/user/kvmon/internal/monitor"
	"github.com/user/kvmon/internal/server"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Capture the command stream and serve the live dashboard",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	if cfg.Listen.Token == "" {
		if err := cfg.EnsureToken(); err != nil {
			return err
		}
		slog.Info("generated listen token and saved it to the config file")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var database *db.DB
	if cfg.Capture.Enabled {
		database, err = db.Open(ctx, cfg.Capture.Path)
		if err != nil {
			return err
		}
		defer database.Close()

		if age, _ := cfg.PruneAge(); age > 0 {
			pruned, err := db.NewEventRepo(database.SQL()).Prune(ctx, age)
			if err != nil {
				return err
			}
			if pruned > 0 {
				slog.Info("pruned old events", "count", pruned, "older_than", age)
			}
		}
	}

	conn, err := client.Dial(cfg.Target.Addr, client.DialOptions{
		Password: cfg.Target.Password,
		Database: cfg.Target.Database,
	})
	if err != nil {
		return err
	}
	cl := client.New(conn, nil)
	defer cl.Close()

	var opts []monitor.Option
	if cfg.Strict {
		opts = append(opts, monitor.Strict())
	}
	consumer, err := monitor.New(cl, opts...)
	if err != nil {
		return fmt.Errorf("start monitoring %s: %w", cfg.Target.Addr, err)
	}
	defer consumer.Close()

	h := hub.New(cfg.Listen.Token, cfg.Target.Addr)

	var apiHandler http.Handler
	if database != nil {
		apiHandler = api.NewRouter(database.SQL(), h, cfg.Listen.Token)
	}

	srv := server.New(cfg, h, apiHandler)

	slog.Info("kvmon serving",
		"target", cfg.Target.Addr,
		"listen", cfg.Listen.Port,
		"capture", cfg.Capture.Enabled,
		"strict", cfg.Strict,
	)
	fmt.Printf("\nkvmon dashboard at ws://localhost:%d/ws?token=%s\n\n", cfg.Listen.Port, cfg.Listen.Token)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return srv.Start(ctx)
	})
	g.Go(func() error {
		return pumpEvents(ctx, cfg, consumer, h, database)
	})
	return g.Wait()
}

// pumpEvents drains the monitor stream into the hub and, when capture
// is on, the event store. It returns when the stream ends.
func pumpEvents(ctx context.Context, cfg *config.Config, consumer *monitor.Consumer, h *hub.Hub, database *db.DB) error {
	var (
		events   *db.EventRepo
		sessions *db.SessionRepo
		session  *db.CaptureSession
	)
	if database != nil {
		events = db.NewEventRepo(database.SQL())
		sessions = db.NewSessionRepo(database.SQL())
		session = &db.CaptureSession{TargetAddr: cfg.Target.Addr}
		if err := sessions.Create(ctx, session); err != nil {
			return err
		}
		slog.Info("capture session started", "session", session.ID)
	}

	var captured int64
	for ev := range consumer.Stream(ctx) {
		h.BroadcastEvent(ev)
		if events == nil {
			continue
		}
		row := &db.MonitorEvent{
			SessionID: session.ID,
			Timestamp: ev.Timestamp,
			Database:  ev.Database,
			Client:    ev.Client,
			Command:   ev.Command,
			Arguments: ev.Arguments,
			Raw:       ev.Raw,
		}
		if err := events.Insert(ctx, row); err != nil {
			slog.Error("failed to capture event", "error", err)
			continue
		}
		captured++
	}

	if sessions != nil {
		// The run context may already be cancelled; stamping the
		// session still has to happen.
		finishCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := sessions.Finish(finishCtx, session.ID, captured); err != nil {
			slog.Error("failed to finish capture session", "error", err)
		} else {
			slog.Info("capture session finished", "session", session.ID, "events", captured)
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("monitor stream to %s ended", cfg.Target.Addr)
}
