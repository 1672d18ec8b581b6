package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hochfrequenz/ci-relay/internal/actions"
	"github.com/hochfrequenz/ci-relay/internal/github"
	"github.com/hochfrequenz/ci-relay/internal/notify"
	"github.com/hochfrequenz/ci-relay/internal/runstore"
	"github.com/hochfrequenz/ci-relay/web/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook/API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := initLogger(cfg.Logging)

	conn, err := runstore.Open(runstore.Options{
		DatabaseURL: cfg.Database.URL,
		SQLitePath:  cfg.Database.SQLitePath,
	}, logger)
	if err != nil {
		return err
	}
	defer conn.Store.Close()

	logger.Info("store ready",
		"backend", conn.Backend.String(), "fallback", conn.FellBack)

	cliq := notify.NewCliqClient(cfg.Cliq.WebhookURL)
	gh := github.NewWithBase(cfg.GitHub.Token, cfg.GitHub.APIBase)
	hub := api.NewHub()
	dispatcher := notify.NewDispatcher(cliq, hub, logger)
	handler := actions.NewHandler(conn.Store, gh, cliq, logger)

	server := api.NewServer(api.Options{
		Store:         conn.Store,
		Actions:       handler,
		Dispatcher:    dispatcher,
		Cliq:          cliq,
		Issues:        gh,
		Hub:           hub,
		APIKey:        cfg.Auth.APIKey,
		WebhookSecret: cfg.Auth.WebhookSecret,
		Logger:        logger,
	})

	digest, err := notify.NewDigest(cfg.Digest.Schedule, cliq, digestStats(conn.Store), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{Addr: cfg.Addr(), Handler: server.Handler()}

	logger.Info("ci-relay listening",
		"addr", cfg.Addr(),
		"cliq_configured", cliq.Configured(),
		"github_configured", gh.Configured(),
		"api_key_set", cfg.Auth.APIKey != "")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		digest.Start()
		<-ctx.Done()
		digest.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// digestStats adapts the store's aggregate query to the digest's needs.
func digestStats(store *runstore.Store) notify.StatsFunc {
	return func(ctx context.Context) (int, int, []string, error) {
		stats, err := store.Stats(ctx)
		if err != nil {
			return 0, 0, nil, err
		}
		names := make([]string, 0, len(stats.TopFailingWorkflows))
		for _, wf := range stats.TopFailingWorkflows {
			names = append(names, wf.Workflow)
		}
		return stats.TotalRuns, stats.FailuresLast7Days, names, nil
	}
}
