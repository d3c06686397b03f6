package sync

import (
	"log/slog"
	"sync"
	"time"
)

const (
	defaultProgressInterval    = 5 * time.Second
	defaultProgressPercentStep = int64(5)
)

type progressKey struct {
	source string
	stage  string
}

type progressMark struct {
	at      time.Time
	percent int64
}

// LogReporter logs sync events, throttling per-stage progress updates to one
// line per interval or percent step.
type LogReporter struct {
	Logger              *slog.Logger
	ProgressInterval    time.Duration
	ProgressPercentStep int64

	mu    sync.Mutex
	marks map[progressKey]progressMark
}

func (r *LogReporter) Report(e Event) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	attrs := make([]any, 0, 10)
	if e.RunID != "" {
		attrs = append(attrs, "run_id", e.RunID)
	}
	if e.Source != "" {
		attrs = append(attrs, "source", e.Source)
	}
	if e.Stage != "" {
		attrs = append(attrs, "stage", e.Stage)
	}
	if e.Total > 0 {
		attrs = append(attrs, "current", e.Current, "total", e.Total)
	}

	if e.Err != nil {
		logger.Error(failureMessage(e), append(attrs, "err", e.Err)...)
		return
	}

	message := e.Message
	if message == "" {
		if !e.Done {
			return
		}
		message = "sync complete"
	}
	if e.Done || r.admit(at, e) {
		logger.Info(message, attrs...)
	}
}

func failureMessage(e Event) string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Source != "" && e.Stage != "":
		return e.Source + " " + e.Stage + " failed"
	case e.Source != "":
		return e.Source + " failed"
	default:
		return "sync failed"
	}
}

// admit reports whether a progress event should be logged. Events without
// counters, single-item stages and stage boundaries always pass.
func (r *LogReporter) admit(at time.Time, e Event) bool {
	if e.Total <= 1 {
		return true
	}

	interval := r.ProgressInterval
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	step := r.ProgressPercentStep
	if step <= 0 {
		step = defaultProgressPercentStep
	}
	percent := progressPercent(e.Current, e.Total)
	boundary := e.Current <= 0 || e.Current >= e.Total

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.marks == nil {
		r.marks = make(map[progressKey]progressMark)
	}
	key := progressKey{source: e.Source, stage: e.Stage}
	last, seen := r.marks[key]
	if !boundary && seen && at.Sub(last.at) < interval && percent < last.percent+step {
		return false
	}
	r.marks[key] = progressMark{at: at, percent: (percent / step) * step}
	return true
}

func progressPercent(current, total int64) int64 {
	switch {
	case total <= 0 || current <= 0:
		return 0
	case current >= total:
		return 100
	default:
		return (current * 100) / total
	}
}
