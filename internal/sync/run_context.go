package sync

import (
	"context"
	"strings"
)

type syncRunContextKey int

const (
	syncRunContextKeySourceScope syncRunContextKey = iota
	syncRunContextKeyRunID
)

// WithSourceScope limits a run to the data source with the given id.
func WithSourceScope(ctx context.Context, sourceID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return ctx
	}
	return context.WithValue(ctx, syncRunContextKeySourceScope, sourceID)
}

func SourceScopeFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(syncRunContextKeySourceScope).(string)
	return id, ok && id != ""
}

func withRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, syncRunContextKeyRunID, runID)
}

// RunIDFromContext returns the id of the run ctx belongs to.
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(syncRunContextKeyRunID).(string)
	return id
}
