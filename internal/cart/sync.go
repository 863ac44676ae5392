package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/logger"
	"github.com/wanterio/wanterio-backend/pkg/metrics"
)

type syncJob struct {
	userID   uuid.UUID
	snapshot backend.CartSnapshot
}

// syncWorker pushes cart snapshots to the remote store on its own goroutine.
// The queue holds at most one job; a newer snapshot replaces a pending one.
// Failures are logged and dropped.
type syncWorker struct {
	remote  backend.CartSnapshots
	timeout time.Duration
	logg    *logger.Logger
	metrics *metrics.CartMetrics

	mu      sync.Mutex
	pending *syncJob
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newSyncWorker(remote backend.CartSnapshots, timeout time.Duration, logg *logger.Logger, m *metrics.CartMetrics) *syncWorker {
	w := &syncWorker{
		remote:  remote,
		timeout: timeout,
		logg:    logg,
		metrics: m,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *syncWorker) enqueue(job syncJob) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending = &job
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *syncWorker) discard() {
	w.mu.Lock()
	w.pending = nil
	w.mu.Unlock()
}

// close stops accepting jobs, flushes the pending one and waits for the
// goroutine to exit.
func (w *syncWorker) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	close(w.wake)
	w.mu.Unlock()
	<-w.done
}

func (w *syncWorker) run() {
	defer close(w.done)
	for range w.wake {
		w.drain()
	}
	w.drain()
}

func (w *syncWorker) drain() {
	for {
		w.mu.Lock()
		job := w.pending
		w.pending = nil
		w.mu.Unlock()
		if job == nil {
			return
		}
		w.push(*job)
	}
}

func (w *syncWorker) push(job syncJob) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	started := time.Now()
	err := w.remote.SaveCartSnapshot(ctx, job.userID, job.snapshot)
	elapsed := time.Since(started)

	logCtx := w.logg.WithUserID(ctx, job.userID.String())
	switch {
	case err == nil:
		w.metrics.ObserveSync(metrics.SyncOK, elapsed)
	case errors.Is(err, context.DeadlineExceeded):
		w.metrics.ObserveSync(metrics.SyncTimeout, elapsed)
		w.logg.Warn(logCtx, "remote cart sync timed out")
	case backend.IsNotConfigured(err):
		w.metrics.ObserveSync(metrics.SyncFailed, elapsed)
		w.logg.Debug(logCtx, "remote cart sync skipped: backend not configured")
	default:
		w.metrics.ObserveSync(metrics.SyncFailed, elapsed)
		w.logg.Error(logCtx, "remote cart sync failed", err)
	}
}
