package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/pgxstore"
	"github.com/alexedwards/scs/v2"
	"github.com/open-sspm/open-cbom/internal/config"
	httpapp "github.com/open-sspm/open-cbom/internal/http"
	"github.com/open-sspm/open-cbom/internal/http/handlers"
	"github.com/open-sspm/open-cbom/internal/inventory"
	"github.com/open-sspm/open-cbom/internal/metrics"
	"github.com/open-sspm/open-cbom/internal/sync"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard and the background sync loop.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.LoadOptionalDB()
	if err != nil {
		return err
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, pool, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	sessions := scs.New()
	sessions.Lifetime = cfg.SessionLifetime
	sessions.Cookie.Name = "ocbom_session"
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode
	sessions.Cookie.Secure = cfg.AuthCookieSecure
	if pool != nil {
		sessions.Store = pgxstore.New(pool)
	}

	cache := inventory.NewCache(st, logger)
	catalogRunner, err := newCatalogRunner(cfg, st, cache, logger)
	if err != nil {
		return err
	}

	// One sync at a time in this process; with a database, across processes too.
	var runner sync.Runner = catalogRunner
	if pool != nil {
		runner = sync.NewTryRunOnceLockRunner(pool, runner)
	}
	runner = sync.NewTryLockRunner(runner)

	scheduler := sync.Scheduler{Runner: runner, Interval: cfg.SyncInterval, Logger: logger}
	go scheduler.Run(ctx)

	_, metricsErr := metrics.StartServer(ctx, cfg.MetricsAddr, logger)

	srv, err := httpapp.NewEchoServer(&handlers.Handlers{
		Cfg:      cfg,
		Store:    st,
		Cache:    cache,
		Sessions: sessions,
		Syncer:   runner,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "auth_disabled", cfg.AuthDisabled)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-metricsErr:
		return err
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
