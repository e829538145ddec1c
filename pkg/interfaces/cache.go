package interfaces

import (
	"context"
	"time"

	"gpuprices/internal/model"
)

// LatestCache caches the records of a snapshot, keyed by observed_at, the
// snapshot version and the provider filter. A rewrite of observed_at bumps its
// version, so an entry filled from a superseded read is never served again.
// Implementations must treat every failure as a miss.
type LatestCache interface {
	Get(ctx context.Context, observedAt time.Time, version int64, provider string) ([]model.PriceRecord, bool)
	Set(ctx context.Context, observedAt time.Time, version int64, provider string, records []model.PriceRecord)
	Invalidate(ctx context.Context, observedAt time.Time) error
}

// SnapshotPublisher fans newly written snapshot summaries out to subscribers
type SnapshotPublisher interface {
	Publish(summary model.SnapshotSummary)
}
