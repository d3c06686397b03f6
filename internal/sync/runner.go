package sync

import (
	"context"
	"errors"
	"time"
)

// Runner executes a single sync pass.
type Runner interface {
	RunOnce(context.Context) error
}

var ErrNoDataSources = errors.New("no data sources are configured")

// ErrSyncAlreadyRunning is returned by a try-lock runner when another sync pass
// is already in progress.
var ErrSyncAlreadyRunning = errors.New("sync is already running")

// Event is a progress or failure notification emitted during a run.
type Event struct {
	RunID   string
	Source  string
	Stage   string
	Current int64
	Total   int64
	Message string
	Err     error
	Done    bool
	At      time.Time
}

type Reporter interface {
	Report(Event)
}

type noopReporter struct{}

func (noopReporter) Report(Event) {}
