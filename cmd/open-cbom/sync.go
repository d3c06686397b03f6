package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/open-sspm/open-cbom/internal/config"
	"github.com/open-sspm/open-cbom/internal/sync"
	"github.com/spf13/cobra"
)

var syncSource string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch every data source of the catalog once and store its CBOM documents.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync()
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncSource, "source", "", "Only sync the data source with this id")
}

func runSync() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.Default()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, pool, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	catalogRunner, err := newCatalogRunner(cfg, st, nil, logger)
	if err != nil {
		return err
	}
	runner := sync.NewBlockingRunOnceLockRunner(pool, catalogRunner)

	if syncSource != "" {
		ctx = sync.WithSourceScope(ctx, syncSource)
	}
	syncErr := runner.RunOnce(ctx)
	if syncErr == nil {
		return nil
	}
	if errors.Is(syncErr, context.Canceled) {
		return &exitError{code: 130, err: syncErr, silent: true}
	}
	return &exitError{code: 1, err: syncErr, silent: false}
}
