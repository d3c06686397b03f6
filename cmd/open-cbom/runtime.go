package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/open-sspm/open-cbom/internal/config"
	"github.com/open-sspm/open-cbom/internal/datasource"
	"github.com/open-sspm/open-cbom/internal/inventory"
	"github.com/open-sspm/open-cbom/internal/secrets"
	"github.com/open-sspm/open-cbom/internal/store"
	"github.com/open-sspm/open-cbom/internal/store/pgstore"
	"github.com/open-sspm/open-cbom/internal/sync"
)

// openStore connects to Postgres when DATABASE_URL is set and falls back to
// an in-memory store otherwise. The returned pool is nil for the memory store.
func openStore(ctx context.Context, cfg config.Config) (store.Store, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is not set; using an in-memory store")
		return store.NewMemory(), nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return pgstore.New(pool), pool, nil
}

func githubTokens(cfg config.Config) (secrets.TokenResolver, error) {
	tokens := secrets.TokenResolver{Static: cfg.GitHubToken}
	if cfg.GitHubToken != "" || !cfg.VaultEnabled() {
		return tokens, nil
	}
	client, err := secrets.NewVaultClient(cfg.VaultOptions())
	if err != nil {
		return tokens, err
	}
	tokens.Reader = client
	tokens.Reference = secrets.ParseReference(cfg.VaultGitHubTokenPath)
	return tokens, nil
}

func newFetcher(cfg config.Config, logger *slog.Logger) (datasource.Fetcher, error) {
	tokens, err := githubTokens(cfg)
	if err != nil {
		return nil, err
	}
	return datasource.Router{
		Files: &datasource.FileFetcher{
			BaseDir: filepath.Dir(cfg.DataSourcesFile),
			Workers: cfg.SyncWorkers,
		},
		GitHub: &datasource.GitHubFetcher{
			BaseURL: cfg.GitHubAPIURL,
			Tokens:  tokens,
			Workers: cfg.SyncWorkers,
			Logger:  logger,
		},
	}, nil
}

func newCatalogRunner(cfg config.Config, st store.Store, cache *inventory.Cache, logger *slog.Logger) (*sync.CatalogRunner, error) {
	fetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return nil, err
	}
	runner := &sync.CatalogRunner{
		CatalogPath: cfg.DataSourcesFile,
		Store:       st,
		Fetcher:     fetcher,
		Workers:     cfg.SyncWorkers,
		Reporter:    &sync.LogReporter{Logger: logger},
		Logger:      logger,
	}
	if cache != nil {
		runner.Cache = cache
	}
	return runner, nil
}
