package jobs

import (
	"context"
	"fmt"
	"time"

	"gpuprices/internal/collector"
	"gpuprices/internal/model"
	"gpuprices/pkg/constants"
	"gpuprices/pkg/lock"
	"gpuprices/pkg/logger"
)

// Collector produces one catalog snapshot
type Collector interface {
	Collect(ctx context.Context) ([]model.PriceRecord, *collector.Report, error)
}

// Ingester stores one snapshot
type Ingester interface {
	Ingest(ctx context.Context, records []model.PriceRecord, observedAt time.Time) (*model.IngestResult, error)
}

// CollectJob periodically collects the catalog and ingests it as a new
// snapshot. Only the replica holding the lock collects in a given cycle.
type CollectJob struct {
	interval  time.Duration
	collector Collector
	ingester  Ingester
	lock      lock.DistributedLock
}

// NewCollectJob creates a collection job; lock may be nil
func NewCollectJob(interval time.Duration, c Collector, ingester Ingester, l lock.DistributedLock) *CollectJob {
	return &CollectJob{
		interval:  interval,
		collector: c,
		ingester:  ingester,
		lock:      l,
	}
}

func (j *CollectJob) Name() string { return constants.JobCollectPrices }

func (j *CollectJob) Interval() time.Duration { return j.interval }

// AlignToInterval makes hourly collections land on the hour.
func (j *CollectJob) AlignToInterval() bool { return j.interval >= time.Hour }

func (j *CollectJob) Run(ctx context.Context) error {
	if j.collector == nil || j.ingester == nil {
		return fmt.Errorf("collect job not configured")
	}

	if j.lock != nil {
		acquired, err := j.lock.TryLock(ctx)
		if err != nil {
			return fmt.Errorf("acquire collector lock: %w", err)
		}
		if !acquired {
			logger.DebugCtx(ctx, "another instance is collecting prices, skipping this cycle")
			return nil
		}
		defer j.lock.Unlock(ctx)
	}

	records, report, err := j.collector.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect catalog: %w", err)
	}
	if len(records) == 0 {
		logger.WarnCtx(ctx, "catalog produced no offers (fetched=%d, failed=%d, filtered=%d), nothing to ingest",
			report.Fetched, report.Failed, report.Filtered)
		return nil
	}

	result, err := j.ingester.Ingest(ctx, records, time.Time{})
	if err != nil {
		return fmt.Errorf("ingest snapshot: %w", err)
	}
	logger.InfoCtx(ctx, "stored snapshot %s: %d offers accepted, %d rejected",
		result.ObservedAt.Format(time.RFC3339), result.Accepted, result.Rejected)
	return nil
}
