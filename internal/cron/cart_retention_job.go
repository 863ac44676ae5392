package cron

import (
	"context"
	"fmt"
	"time"
)

const defaultCartRetention = 30 * 24 * time.Hour

type cartSnapshotPruner interface {
	PruneCartSnapshots(ctx context.Context, cutoff time.Time) (int64, error)
}

// CartRetentionJob deletes remote cart snapshots nobody has touched within
// the retention window.
type CartRetentionJob struct {
	store     cartSnapshotPruner
	retention time.Duration
	now       func() time.Time
}

func NewCartRetentionJob(store cartSnapshotPruner, retention time.Duration) (*CartRetentionJob, error) {
	if store == nil {
		return nil, fmt.Errorf("cart snapshot store required")
	}
	if retention <= 0 {
		retention = defaultCartRetention
	}
	return &CartRetentionJob{store: store, retention: retention, now: time.Now}, nil
}

func (j *CartRetentionJob) Name() string { return "cart-snapshot-retention" }

func (j *CartRetentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	rows, err := j.store.PruneCartSnapshots(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cart retention: %w", err)
	}
	return rows, nil
}
