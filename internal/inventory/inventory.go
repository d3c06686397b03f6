// Package inventory turns the stored documents of a data source into the
// datasets the dashboard renders, and caches them until the documents change.
package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/open-sspm/open-cbom/internal/cbom"
	"github.com/open-sspm/open-cbom/internal/datasource"
	"golang.org/x/sync/singleflight"
)

// materialsTTL bounds how long certificate expiry states are reused.
const materialsTTL = time.Hour

type DocumentLister interface {
	ListDocuments(ctx context.Context, sourceID string) ([]datasource.Document, error)
}

// DocumentError records a stored document that could not be parsed.
type DocumentError struct {
	Name string
	Err  error
}

// Dataset is everything derived from one source's documents.
type Dataset struct {
	SourceID    string
	Fingerprint string
	Format      string
	CBOM        *cbom.Inventory
	Materials   *cbom.MaterialsInventory
	Invalid     []DocumentError
	BuiltAt     time.Time
}

// Build parses docs and aggregates them. Documents that fail to parse are
// reported in Invalid and left out.
func Build(sourceID string, docs []datasource.Document, now time.Time) *Dataset {
	ds := &Dataset{
		SourceID:    sourceID,
		Fingerprint: datasource.FingerprintSet(docs),
		BuiltAt:     now,
	}
	sources := make([]cbom.Source, 0, len(docs))
	for _, doc := range docs {
		bom, err := cbom.Parse(doc.Raw)
		if err != nil {
			ds.Invalid = append(ds.Invalid, DocumentError{Name: doc.Name, Err: err})
			continue
		}
		if ds.Format == "" {
			ds.Format = bom.FormatTag()
		}
		sources = append(sources, cbom.Source{Name: doc.Name, BOM: bom})
	}
	ds.CBOM = cbom.Build(sources)
	ds.Materials = cbom.BuildMaterials(sources, now)
	return ds
}

// Err is non-nil when no document of a non-empty source parsed.
func (d *Dataset) Err() error {
	if d == nil || len(d.Invalid) == 0 || d.CBOM == nil || len(d.CBOM.Applications) > 0 {
		return nil
	}
	first := d.Invalid[0]
	return fmt.Errorf("%s: %w", first.Name, first.Err)
}

// Cache keeps one Dataset per source keyed by the documents' fingerprint set.
type Cache struct {
	Documents DocumentLister
	Logger    *slog.Logger
	Now       func() time.Time

	mu      sync.Mutex
	entries map[string]*Dataset
	group   singleflight.Group
	build   func(sourceID string, docs []datasource.Document, now time.Time) *Dataset
}

func NewCache(docs DocumentLister, logger *slog.Logger) *Cache {
	return &Cache{Documents: docs, Logger: logger, Now: time.Now}
}

// Load returns the dataset of sourceID, rebuilding it only when the stored
// documents changed. Concurrent loads of the same documents share one
// rebuild; other sources are served while it runs.
func (c *Cache) Load(ctx context.Context, sourceID string) (*Dataset, error) {
	docs, err := c.Documents.ListDocuments(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("load documents of %q: %w", sourceID, err)
	}
	fingerprint := datasource.FingerprintSet(docs)
	now := c.now()

	if ds, ok := c.fresh(sourceID, fingerprint, now); ok {
		return ds, nil
	}

	v, _, _ := c.group.Do(sourceID+"\x00"+fingerprint, func() (any, error) {
		if ds, ok := c.fresh(sourceID, fingerprint, now); ok {
			return ds, nil
		}
		ds := c.buildDataset(sourceID, docs, now)
		for _, invalid := range ds.Invalid {
			c.logger().Warn("skipping invalid cbom document", "source", sourceID, "document", invalid.Name, "err", invalid.Err)
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.entries == nil {
			c.entries = make(map[string]*Dataset)
		}
		c.entries[sourceID] = ds
		return ds, nil
	})
	return v.(*Dataset), nil
}

func (c *Cache) fresh(sourceID, fingerprint string, now time.Time) (*Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ds, ok := c.entries[sourceID]
	if !ok || ds.Fingerprint != fingerprint || now.Sub(ds.BuiltAt) >= materialsTTL {
		return nil, false
	}
	return ds, true
}

func (c *Cache) buildDataset(sourceID string, docs []datasource.Document, now time.Time) *Dataset {
	if c.build != nil {
		return c.build(sourceID, docs, now)
	}
	return Build(sourceID, docs, now)
}

// Invalidate drops the cached dataset of sourceID.
func (c *Cache) Invalidate(sourceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sourceID)
}

func (c *Cache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Cache) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
