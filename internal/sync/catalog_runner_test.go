package sync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/open-sspm/open-cbom/internal/datasource"
	"github.com/open-sspm/open-cbom/internal/store"
)

const shopBOM = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.6",
  "metadata": {"component": {"type": "application", "name": "shop"}},
  "services": [{"bom-ref": "svc-cart", "name": "cart"}, {"bom-ref": "svc-auth", "name": "auth"}],
  "components": [
    {"type": "cryptographic-asset", "bom-ref": "alg-ecdsa", "name": "ECDSA-P256",
     "cryptoProperties": {"assetType": "algorithm", "algorithmProperties": {"primitive": "signature"}}}
  ],
  "dependencies": [{"ref": "svc-cart", "dependsOn": ["alg-ecdsa"]}, {"ref": "svc-auth", "dependsOn": ["alg-ecdsa"]}]
}`

const testCatalog = `
sources:
  - id: shop
    name: Shop
    type: single
    path: shop.json
  - id: broken
    type: single
    path: broken.json
`

type fakeFetcher struct {
	mu      gosync.Mutex
	docs    map[string]string
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, src datasource.SourceConfig) ([]datasource.Document, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, src.ID)
	f.mu.Unlock()
	raw, ok := f.docs[src.ID]
	if !ok {
		return nil, datasource.ErrNoDocuments
	}
	doc, err := datasource.NewDocument(src.ID, src.ID+".json", []byte(raw), time.Now())
	if err != nil {
		return nil, err
	}
	return []datasource.Document{doc}, nil
}

type recordingInvalidator struct {
	mu  gosync.Mutex
	ids []string
}

func (r *recordingInvalidator) Invalidate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datasources.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCatalogRunnerSyncsSourcesIndependently(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemory()
	cache := &recordingInvalidator{}
	fixed := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	runner := &CatalogRunner{
		CatalogPath: writeCatalog(t, testCatalog),
		Store:       st,
		Fetcher:     &fakeFetcher{docs: map[string]string{"shop": shopBOM}},
		Workers:     2,
		Cache:       cache,
		Now:         func() time.Time { return fixed },
	}

	err := runner.RunOnce(ctx)
	if err == nil {
		t.Fatalf("expected the broken source to fail the run")
	}
	if !errors.Is(err, datasource.ErrNoDocuments) || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("RunOnce() error = %v", err)
	}

	shop, err := st.GetDataSource(ctx, "shop")
	if err != nil {
		t.Fatalf("GetDataSource(shop) error = %v", err)
	}
	if shop.Status != datasource.StatusActive || shop.ServiceCount != 2 || !shop.LastUpdated.Equal(fixed) {
		t.Fatalf("shop = %+v", shop)
	}
	if shop.Format != "cyclonedx-1.6" {
		t.Fatalf("shop format = %q", shop.Format)
	}
	docs, _ := st.ListDocuments(ctx, "shop")
	if len(docs) != 1 {
		t.Fatalf("shop documents = %d, want 1", len(docs))
	}

	broken, err := st.GetDataSource(ctx, "broken")
	if err != nil {
		t.Fatalf("GetDataSource(broken) error = %v", err)
	}
	if broken.Status != datasource.StatusError || broken.LastError == "" {
		t.Fatalf("broken = %+v", broken)
	}

	if len(cache.ids) != 1 || cache.ids[0] != "shop" {
		t.Fatalf("invalidated = %v, want [shop]", cache.ids)
	}
}

func TestCatalogRunnerRejectsUnparseableDocuments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemory()
	runner := &CatalogRunner{
		CatalogPath: writeCatalog(t, "sources:\n  - {id: shop, type: single, path: shop.json}\n"),
		Store:       st,
		Fetcher:     &fakeFetcher{docs: map[string]string{"shop": `{"bomFormat":"SPDX"}`}},
	}
	if err := runner.RunOnce(ctx); err == nil {
		t.Fatalf("expected an error for an unparseable source")
	}
	docs, _ := st.ListDocuments(ctx, "shop")
	if len(docs) != 0 {
		t.Fatalf("unparseable documents were stored")
	}
}

func TestCatalogRunnerScopeAndPrune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemory()
	if err := st.UpsertDataSource(ctx, datasource.Descriptor{ID: "retired", ConnectionType: datasource.ConnectionSingle}); err != nil {
		t.Fatal(err)
	}
	fetcher := &fakeFetcher{docs: map[string]string{"shop": shopBOM}}
	runner := &CatalogRunner{CatalogPath: writeCatalog(t, testCatalog), Store: st, Fetcher: fetcher}

	if err := runner.RunOnce(WithSourceScope(ctx, "shop")); err != nil {
		t.Fatalf("RunOnce(scope shop) error = %v", err)
	}
	if len(fetcher.fetched) != 1 || fetcher.fetched[0] != "shop" {
		t.Fatalf("fetched = %v, want [shop]", fetcher.fetched)
	}
	if _, err := st.GetDataSource(ctx, "retired"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("retired source should be pruned, got %v", err)
	}
	list, _ := st.ListDataSources(ctx)
	if len(list) != 2 {
		t.Fatalf("sources = %+v, want both catalog entries", list)
	}

	if err := runner.RunOnce(WithSourceScope(ctx, "nope")); !errors.Is(err, ErrUnknownDataSource) {
		t.Fatalf("RunOnce(scope nope) error = %v, want ErrUnknownDataSource", err)
	}
}

func TestCatalogRunnerEmptyCatalog(t *testing.T) {
	t.Parallel()

	runner := &CatalogRunner{CatalogPath: writeCatalog(t, "sources: []\n"), Store: store.NewMemory(), Fetcher: &fakeFetcher{}}
	if err := runner.RunOnce(context.Background()); !errors.Is(err, ErrNoDataSources) {
		t.Fatalf("RunOnce() error = %v, want ErrNoDataSources", err)
	}

	missing := &CatalogRunner{CatalogPath: filepath.Join(t.TempDir(), "none.yaml"), Store: store.NewMemory(), Fetcher: &fakeFetcher{}}
	if err := missing.RunOnce(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("RunOnce() error = %v, want os.ErrNotExist", err)
	}
}
