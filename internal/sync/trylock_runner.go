package sync

import (
	"context"
	gosync "sync"
	"sync/atomic"
)

// TryLockRunner lets one RunOnce through at a time and rejects overlapping
// calls with ErrSyncAlreadyRunning.
type TryLockRunner struct {
	inner   Runner
	mu      gosync.Mutex
	running atomic.Bool
}

func NewTryLockRunner(inner Runner) *TryLockRunner {
	return &TryLockRunner{inner: inner}
}

func (r *TryLockRunner) RunOnce(ctx context.Context) error {
	if !r.mu.TryLock() {
		return ErrSyncAlreadyRunning
	}
	defer r.mu.Unlock()
	r.running.Store(true)
	defer r.running.Store(false)
	return r.inner.RunOnce(ctx)
}

// Running reports whether a run is in progress.
func (r *TryLockRunner) Running() bool {
	return r.running.Load()
}
