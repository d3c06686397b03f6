package sync

import (
	"context"
	"errors"
	gosync "sync"
	"sync/atomic"
)

// ParallelResult holds the outcome for one input item.
type ParallelResult[R any] struct {
	Value R
	Err   error
	// Skipped is set for items never started because the run was cancelled.
	Skipped bool
}

// ParallelCollect runs process over items with at most workers goroutines.
// Results are returned in input order. The first failure cancels the items not
// yet started, and the first non-cancellation error is returned.
//
// onProgress is called after each item that succeeds.
func ParallelCollect[T any, R any](
	ctx context.Context,
	items []T,
	workers int,
	process func(ctx context.Context, item T) (R, error),
	onProgress func(done int64, total int64),
) ([]ParallelResult[R], error) {
	if len(items) == 0 {
		return nil, nil
	}

	workers = normalizeWorkers(workers, len(items))
	total := int64(len(items))
	out := make([]ParallelResult[R], len(items))
	for i := range out {
		out[i].Skipped = true
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	var done int64
	var wg gosync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if workerCtx.Err() != nil {
					continue
				}
				value, err := process(workerCtx, items[i])
				out[i] = ParallelResult[R]{Value: value, Err: err}
				if err != nil {
					cancel()
					continue
				}
				n := atomic.AddInt64(&done, 1)
				if onProgress != nil {
					onProgress(n, total)
				}
			}
		}()
	}

feed:
	for i := range items {
		select {
		case <-workerCtx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	var firstErr, firstNonCancelErr error
	for _, res := range out {
		if res.Err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = res.Err
		}
		if firstNonCancelErr == nil && !errors.Is(res.Err, context.Canceled) {
			firstNonCancelErr = res.Err
		}
	}
	if firstNonCancelErr != nil {
		return out, firstNonCancelErr
	}
	if firstErr == nil && ctx.Err() != nil {
		return out, ctx.Err()
	}
	return out, firstErr
}

// normalizeWorkers clamps workers to 1..itemCount.
func normalizeWorkers(workers, itemCount int) int {
	return max(1, min(workers, itemCount))
}
