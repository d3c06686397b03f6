package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/open-sspm/open-cbom/internal/datasource"
	"github.com/open-sspm/open-cbom/internal/inventory"
	"github.com/open-sspm/open-cbom/internal/metrics"
	"github.com/open-sspm/open-cbom/internal/store"
)

var ErrUnknownDataSource = errors.New("unknown data source")

// Invalidator is told when a source's documents were replaced.
type Invalidator interface {
	Invalidate(sourceID string)
}

// CatalogRunner syncs every source of the data source catalog into the store.
type CatalogRunner struct {
	CatalogPath string
	Store       store.Store
	Fetcher     datasource.Fetcher
	Workers     int
	Reporter    Reporter
	Cache       Invalidator
	Logger      *slog.Logger
	Now         func() time.Time
}

type sourceOutcome struct {
	documents int
	services  int
	err       error
}

// RunOnce loads the catalog, records its sources and fetches each one.
// A failing source is marked as errored; the others still complete and the
// failures are returned joined.
func (r *CatalogRunner) RunOnce(ctx context.Context) error {
	if r == nil || r.Store == nil || r.Fetcher == nil {
		return errors.New("sync runner is not configured")
	}
	runID := ulid.Make().String()
	ctx = withRunID(ctx, runID)
	reporter := r.reporter()

	cat, err := datasource.LoadCatalog(r.CatalogPath)
	if err != nil {
		return err
	}
	if len(cat.Sources) == 0 {
		return ErrNoDataSources
	}
	if err := r.recordCatalog(ctx, cat); err != nil {
		return err
	}

	sources := cat.Sources
	if scope, ok := SourceScopeFromContext(ctx); ok {
		src, found := cat.Source(scope)
		if !found {
			return fmt.Errorf("%w: %q", ErrUnknownDataSource, scope)
		}
		sources = []datasource.SourceConfig{src}
	}

	total := int64(len(sources))
	reporter.Report(Event{RunID: runID, Source: "sync", Stage: "plan", Total: total, Message: fmt.Sprintf("syncing %d data sources", total)})

	results, _ := ParallelCollect(ctx, sources, r.Workers, func(ctx context.Context, src datasource.SourceConfig) (sourceOutcome, error) {
		return r.syncSource(ctx, runID, src), nil
	}, func(done, total int64) {
		reporter.Report(Event{RunID: runID, Source: "sync", Stage: "sources", Current: done, Total: total, Message: fmt.Sprintf("data sources %d/%d", done, total)})
	})

	var errs []error
	var failed int
	for i, res := range results {
		id := sources[i].ID
		switch {
		case res.Skipped:
			errs = append(errs, fmt.Errorf("%s: %w", id, context.Cause(ctx)))
			failed++
		case res.Value.err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", id, res.Value.err))
			failed++
		}
	}

	reporter.Report(Event{RunID: runID, Source: "sync", Done: true, Message: fmt.Sprintf("sync complete: %d ok, %d failed", len(sources)-failed, failed)})
	return errors.Join(errs...)
}

// recordCatalog upserts the configured sources and removes ones no longer listed.
func (r *CatalogRunner) recordCatalog(ctx context.Context, cat datasource.Catalog) error {
	existing, err := r.Store.ListDataSources(ctx)
	if err != nil {
		return err
	}
	keep := make([]string, 0, len(cat.Sources))
	for _, d := range cat.Descriptors() {
		if err := r.Store.UpsertDataSource(ctx, d); err != nil {
			return err
		}
		keep = append(keep, d.ID)
	}
	if err := r.Store.PruneDataSources(ctx, keep); err != nil {
		return err
	}
	for _, d := range existing {
		if !slices.Contains(keep, d.ID) {
			metrics.ForgetSource(d.ID)
			if r.Cache != nil {
				r.Cache.Invalidate(d.ID)
			}
			r.logger().Info("removed data source no longer in catalog", "source", d.ID)
		}
	}
	return nil
}

func (r *CatalogRunner) syncSource(ctx context.Context, runID string, src datasource.SourceConfig) sourceOutcome {
	start := r.now()
	typ := string(src.Type)
	reporter := r.reporter()
	reporter.Report(Event{RunID: runID, Source: src.ID, Stage: "fetch", Message: "fetching " + src.Type.Label() + " source"})

	if err := r.Store.UpdateDataSourceStatus(ctx, src.ID, datasource.StatusProcessing, ""); err != nil {
		return sourceOutcome{err: err}
	}

	out := r.fetchAndStore(ctx, src, start)
	metrics.SyncDuration.WithLabelValues(src.ID, typ).Observe(r.now().Sub(start).Seconds())

	if out.err != nil {
		metrics.SyncRunsTotal.WithLabelValues(src.ID, typ, "error").Inc()
		reporter.Report(Event{RunID: runID, Source: src.ID, Stage: "fetch", Err: out.err})
		// Record the failure even when the run itself was cancelled.
		statusCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := r.Store.UpdateDataSourceStatus(statusCtx, src.ID, datasource.StatusError, out.err.Error()); err != nil {
			out.err = errors.Join(out.err, err)
		}
		return out
	}

	metrics.SyncRunsTotal.WithLabelValues(src.ID, typ, "success").Inc()
	metrics.SyncLastSuccessTimestamp.WithLabelValues(src.ID).Set(float64(r.now().Unix()))
	metrics.DocumentsTotal.WithLabelValues(src.ID).Set(float64(out.documents))
	metrics.ServicesTotal.WithLabelValues(src.ID).Set(float64(out.services))
	if r.Cache != nil {
		r.Cache.Invalidate(src.ID)
	}
	reporter.Report(Event{RunID: runID, Source: src.ID, Stage: "fetch", Done: true,
		Message: fmt.Sprintf("stored %d documents with %d services", out.documents, out.services)})
	return out
}

func (r *CatalogRunner) fetchAndStore(ctx context.Context, src datasource.SourceConfig, start time.Time) sourceOutcome {
	docs, err := r.Fetcher.Fetch(ctx, src)
	if err != nil {
		return sourceOutcome{err: err}
	}
	ds := inventory.Build(src.ID, docs, start)
	metrics.InvalidDocumentsTotal.WithLabelValues(src.ID).Set(float64(len(ds.Invalid)))
	if err := ds.Err(); err != nil {
		return sourceOutcome{err: err}
	}
	for _, invalid := range ds.Invalid {
		r.logger().Warn("skipping invalid cbom document", "run_id", RunIDFromContext(ctx), "source", src.ID, "document", invalid.Name, "err", invalid.Err)
	}
	if err := r.Store.ReplaceDocuments(ctx, src.ID, docs); err != nil {
		return sourceOutcome{err: err}
	}

	format := ds.Format
	if src.Format != "" {
		format = src.Format
	}
	services := ds.CBOM.Summary.Services
	if err := r.Store.RecordDataSourceSync(ctx, src.ID, store.SyncResult{Format: format, ServiceCount: services, SyncedAt: r.now()}); err != nil {
		return sourceOutcome{err: err}
	}
	return sourceOutcome{documents: len(docs), services: services}
}

func (r *CatalogRunner) reporter() Reporter {
	if r.Reporter != nil {
		return r.Reporter
	}
	return noopReporter{}
}

func (r *CatalogRunner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *CatalogRunner) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}
