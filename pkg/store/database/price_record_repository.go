package database

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"gpuprices/pkg/store/database/model"
)

const insertBatchSize = 500

// PriceRecordRepository handles price_records persistence
type PriceRecordRepository struct {
	ds *Datastore
}

// NewPriceRecordRepository creates a new price record repository
func NewPriceRecordRepository(ds *Datastore) *PriceRecordRepository {
	return &PriceRecordRepository{ds: ds}
}

// ReplaceAt makes rows the complete record set of observedAt: rows of that
// timestamp missing from the batch are deleted, the rest are upserted on the
// identity key. Call it inside ExecTx so the delete and the upsert commit together.
func (r *PriceRecordRepository) ReplaceAt(ctx context.Context, observedAt time.Time, rows []*model.PriceRecord) error {
	db := r.ds.DB(ctx)
	if err := db.Where("observed_at = ?", observedAt).Delete(&model.PriceRecord{}).Error; err != nil {
		return unavailable("failed to clear snapshot records", err)
	}
	if len(rows) == 0 {
		return nil
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "observed_at"}, {Name: "provider"}, {Name: "instance_type"}, {Name: "region"},
		},
		DoUpdates: clause.AssignmentColumns(model.PriceRecordUpdateColumns),
	}).CreateInBatches(rows, insertBatchSize).Error
	if err != nil {
		return unavailable("failed to upsert price records", err)
	}
	return nil
}

// LatestObservedAt returns the greatest observed_at in the store; ok is false
// when the store is empty.
func (r *PriceRecordRepository) LatestObservedAt(ctx context.Context) (ts time.Time, ok bool, err error) {
	return r.boundaryObservedAt(ctx, "observed_at DESC")
}

// EarliestObservedAt returns the smallest observed_at in the store
func (r *PriceRecordRepository) EarliestObservedAt(ctx context.Context) (ts time.Time, ok bool, err error) {
	return r.boundaryObservedAt(ctx, "observed_at ASC")
}

// boundaryObservedAt reads the first observed_at in the given order. Ordering
// with LIMIT keeps the column's declared type, which MIN/MAX lose on SQLite.
func (r *PriceRecordRepository) boundaryObservedAt(ctx context.Context, order string) (time.Time, bool, error) {
	var stamps []time.Time
	err := r.ds.DB(ctx).Model(&model.PriceRecord{}).
		Order(order).
		Limit(1).
		Pluck("observed_at", &stamps).Error
	if err != nil {
		return time.Time{}, false, unavailable("failed to read observed_at", err)
	}
	if len(stamps) == 0 {
		return time.Time{}, false, nil
	}
	return stamps[0].UTC(), true, nil
}

// FindAt returns all records of one snapshot, optionally filtered by provider,
// ordered by provider, instance_type, region
func (r *PriceRecordRepository) FindAt(ctx context.Context, observedAt time.Time, provider string) ([]*model.PriceRecord, error) {
	var rows []*model.PriceRecord

	query := r.ds.DB(ctx).Where("observed_at = ?", observedAt)
	if provider != "" {
		query = query.Where("provider = ?", provider)
	}

	if err := query.Order("provider ASC, instance_type ASC, region ASC").Find(&rows).Error; err != nil {
		return nil, unavailable("failed to find snapshot records", err)
	}
	return rows, nil
}

// FindHistory returns the records of one (provider, instance_type, region)
// observed within [since, until], ascending by observed_at. There is at most
// one record per observed_at.
func (r *PriceRecordRepository) FindHistory(ctx context.Context, instanceType, provider, region string, since, until time.Time) ([]*model.PriceRecord, error) {
	var rows []*model.PriceRecord

	err := r.ds.DB(ctx).
		Where("provider = ? AND instance_type = ? AND region = ?", provider, instanceType, region).
		Where("observed_at >= ? AND observed_at <= ?", since, until).
		Order("observed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, unavailable("failed to find price history", err)
	}
	return rows, nil
}

// AggregateTrends groups records observed within [since, until] by exact
// observed_at and aggregates price_per_hour per group
func (r *PriceRecordRepository) AggregateTrends(ctx context.Context, gpuType, provider string, since, until time.Time) ([]*model.TrendRow, error) {
	var rows []*model.TrendRow

	query := r.ds.DB(ctx).Model(&model.PriceRecord{}).
		Select(`observed_at,
			AVG(price_per_hour) AS avg_price,
			MIN(price_per_hour) AS min_price,
			MAX(price_per_hour) AS max_price,
			COUNT(*) AS instance_count`).
		Where("observed_at >= ? AND observed_at <= ?", since, until)
	if gpuType != "" {
		query = query.Where("gpu_type = ?", gpuType)
	}
	if provider != "" {
		query = query.Where("provider = ?", provider)
	}

	if err := query.Group("observed_at").Order("observed_at ASC").Scan(&rows).Error; err != nil {
		return nil, unavailable("failed to aggregate price trends", err)
	}
	return rows, nil
}

// Count returns the total number of price records
func (r *PriceRecordRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.ds.DB(ctx).Model(&model.PriceRecord{}).Count(&total).Error; err != nil {
		return 0, unavailable("failed to count price records", err)
	}
	return total, nil
}

// CountDistinct returns the number of distinct values of column
func (r *PriceRecordRepository) CountDistinct(ctx context.Context, column string) (int64, error) {
	var total int64
	if err := r.ds.DB(ctx).Model(&model.PriceRecord{}).Distinct(column).Count(&total).Error; err != nil {
		return 0, unavailable("failed to count distinct "+column, err)
	}
	return total, nil
}
