package sync

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// runOnceLockKey is the advisory lock shared by every open-cbom process
// syncing into the same database.
const runOnceLockKey int64 = 0x63626f6d73796e63

type runOnceLockRunner struct {
	pool    *pgxpool.Pool
	inner   Runner
	tryLock bool
}

// NewBlockingRunOnceLockRunner waits for other processes to finish their run.
func NewBlockingRunOnceLockRunner(pool *pgxpool.Pool, inner Runner) Runner {
	return &runOnceLockRunner{pool: pool, inner: inner}
}

// NewTryRunOnceLockRunner returns ErrSyncAlreadyRunning when another process
// holds the lock.
func NewTryRunOnceLockRunner(pool *pgxpool.Pool, inner Runner) Runner {
	return &runOnceLockRunner{pool: pool, inner: inner, tryLock: true}
}

func (r *runOnceLockRunner) RunOnce(ctx context.Context) error {
	if r == nil || r.pool == nil || r.inner == nil {
		return errors.New("sync runner is not configured")
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	locked := false
	defer func() {
		if locked {
			unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_, _ = conn.Exec(unlockCtx, "SELECT pg_advisory_unlock($1)", runOnceLockKey)
		}
		conn.Release()
	}()

	if r.tryLock {
		if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", runOnceLockKey).Scan(&locked); err != nil {
			return err
		}
		if !locked {
			return ErrSyncAlreadyRunning
		}
		return r.inner.RunOnce(ctx)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", runOnceLockKey); err != nil {
		return err
	}
	locked = true
	return r.inner.RunOnce(ctx)
}
