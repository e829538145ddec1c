package database

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gpuprices/pkg/store/database/model"
)

// SnapshotRepository handles snapshot_summaries persistence
type SnapshotRepository struct {
	ds *Datastore
}

// NewSnapshotRepository creates a new snapshot summary repository
func NewSnapshotRepository(ds *Datastore) *SnapshotRepository {
	return &SnapshotRepository{ds: ds}
}

// Upsert writes the summary of its observed_at, replacing any existing one and
// incrementing its version
func (r *SnapshotRepository) Upsert(ctx context.Context, summary *model.SnapshotSummary) error {
	updates := append(clause.AssignmentColumns(model.SnapshotSummaryUpdateColumns), clause.Assignment{
		Column: clause.Column{Name: "version"},
		Value:  gorm.Expr("snapshot_summaries.version + 1"),
	})
	err := r.ds.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "observed_at"}},
		DoUpdates: updates,
	}).Create(summary).Error
	if err != nil {
		return unavailable("failed to upsert snapshot summary", err)
	}
	return nil
}

// Get returns the summary of observedAt, nil when none exists
func (r *SnapshotRepository) Get(ctx context.Context, observedAt time.Time) (*model.SnapshotSummary, error) {
	var rows []*model.SnapshotSummary
	if err := r.ds.DB(ctx).Where("observed_at = ?", observedAt).Limit(1).Find(&rows).Error; err != nil {
		return nil, unavailable("failed to get snapshot summary", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Version returns the version of the summary of observedAt; ok is false when
// there is none
func (r *SnapshotRepository) Version(ctx context.Context, observedAt time.Time) (version int64, ok bool, err error) {
	var versions []int64
	err = r.ds.DB(ctx).Model(&model.SnapshotSummary{}).
		Where("observed_at = ?", observedAt).
		Limit(1).
		Pluck("version", &versions).Error
	if err != nil {
		return 0, false, unavailable("failed to read snapshot version", err)
	}
	if len(versions) == 0 {
		return 0, false, nil
	}
	return versions[0], true, nil
}

// ListBetween returns the summaries observed within [since, until], ascending
func (r *SnapshotRepository) ListBetween(ctx context.Context, since, until time.Time) ([]*model.SnapshotSummary, error) {
	var rows []*model.SnapshotSummary
	err := r.ds.DB(ctx).
		Where("observed_at >= ? AND observed_at <= ?", since, until).
		Order("observed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, unavailable("failed to list snapshot summaries", err)
	}
	return rows, nil
}

// Count returns the number of stored summaries
func (r *SnapshotRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.ds.DB(ctx).Model(&model.SnapshotSummary{}).Count(&total).Error; err != nil {
		return 0, unavailable("failed to count snapshot summaries", err)
	}
	return total, nil
}
