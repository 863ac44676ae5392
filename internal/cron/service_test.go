package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/wanterio/wanterio-backend/pkg/logger"
	"github.com/wanterio/wanterio-backend/pkg/metrics"
)

type countingJob struct {
	name string
	rows int64
	err  error
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(ctx context.Context) (int64, error) {
	c.runs++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("job context has no deadline")
	}
	return c.rows, c.err
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &countingJob{name: "ok", rows: 4}
	failing := &countingJob{name: "fail", err: errors.New("boom")}
	registry, err := NewRegistry(ok, failing)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     &LocalLock{},
		Metrics:  metrics.NewMaintenanceMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if ok.runs != 1 || failing.runs != 1 {
		t.Fatalf("expected each job to run once, got ok=%d fail=%d", ok.runs, failing.runs)
	}
	got, err := testutil.GatherAndCount(reg, "maintenance_job_runs_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected 2 run series, got %d", got)
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "ok"}
	registry, _ := NewRegistry(job)
	lock := &LocalLock{}
	service, err := NewService(ServiceParams{Registry: registry, Lock: lock})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("expected to acquire fresh lock")
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job should not run while lock is held, ran %d", job.runs)
	}

	_ = lock.Release(context.Background())
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected one run after release, got %d", job.runs)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &countingJob{name: "ok"}
	registry, _ := NewRegistry(job)
	service, err := NewService(ServiceParams{Registry: registry, Lock: &LocalLock{}, Interval: time.Hour})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
	if job.runs != 1 {
		t.Fatalf("expected the immediate cycle to run once, got %d", job.runs)
	}
}

func TestNewServiceValidatesParams(t *testing.T) {
	if _, err := NewService(ServiceParams{Registry: &Registry{}}); err == nil {
		t.Fatal("expected lock error")
	}
	if _, err := NewService(ServiceParams{Lock: &LocalLock{}}); err == nil {
		t.Fatal("expected registry error")
	}
}
