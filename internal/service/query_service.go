package service

import (
	"context"
	"time"

	"gpuprices/internal/model"
	"gpuprices/pkg/interfaces"
	"gpuprices/pkg/logger"
	"gpuprices/pkg/store/database"
)

// Default query windows in days
const (
	DefaultHistoryDays   = 7
	DefaultTrendDays     = 30
	DefaultSnapshotDays  = 30
	DefaultBestDealLimit = 10
)

// QueryService answers read-only queries over the price history. Windows are
// [now - days, now], inclusive of the lower bound, with now read at call time.
type QueryService struct {
	repo  *database.Repository
	cache interfaces.LatestCache
	now   func() time.Time
}

// NewQueryService creates a new query service
func NewQueryService(repo *database.Repository) *QueryService {
	return &QueryService{
		repo: repo,
		now:  time.Now,
	}
}

// SetCache sets the latest-snapshot cache
func (s *QueryService) SetCache(cache interfaces.LatestCache) {
	s.cache = cache
}

// window returns [now - days, now]; records stamped in the future are outside it
func (s *QueryService) window(days, defaultDays int) (since, until time.Time) {
	if days <= 0 {
		days = defaultDays
	}
	now := s.now()
	return model.NormalizeTimestamp(now.Add(-time.Duration(days) * 24 * time.Hour)), model.NormalizeTimestamp(now)
}

// LatestPrices returns every record at the greatest observed_at in the store,
// optionally filtered by provider. The timestamp is global: a provider that
// missed the most recent ingestion is absent from the result even if it has
// older records.
func (s *QueryService) LatestPrices(ctx context.Context, provider string) ([]model.PriceRecord, error) {
	latest, ok, err := s.repo.PriceRecord.LatestObservedAt(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []model.PriceRecord{}, nil
	}

	// The version is read before the records: a concurrent rewrite can only
	// make the records newer than the version they are cached under.
	var (
		version   int64
		cacheable bool
	)
	if s.cache != nil {
		if version, cacheable, err = s.repo.Snapshot.Version(ctx, latest); err != nil {
			return nil, err
		}
		if cacheable {
			if records, hit := s.cache.Get(ctx, latest, version, provider); hit {
				return records, nil
			}
		}
	}

	rows, err := s.repo.PriceRecord.FindAt(ctx, latest, provider)
	if err != nil {
		return nil, err
	}
	records := make([]model.PriceRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, database.ToPriceRecordDomain(row))
	}

	if cacheable {
		s.cache.Set(ctx, latest, version, provider, records)
	}
	return records, nil
}

// PriceHistory returns one point per observed_at for the exact identity
// (provider, instance_type, region), ascending. All three are required.
func (s *QueryService) PriceHistory(ctx context.Context, instanceType, provider, region string, days int) ([]model.PricePoint, error) {
	if err := model.RequireFields(map[string]string{
		model.FieldInstanceType: instanceType,
		model.FieldProvider:     provider,
		model.FieldRegion:       region,
	}); err != nil {
		return nil, err
	}

	since, until := s.window(days, DefaultHistoryDays)
	rows, err := s.repo.PriceRecord.FindHistory(ctx, instanceType, provider, region, since, until)
	if err != nil {
		return nil, err
	}

	points := make([]model.PricePoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, model.PricePoint{
			ObservedAt:   row.ObservedAt.UTC(),
			PricePerHour: row.PricePerHour,
			Available:    row.Available,
		})
	}
	return points, nil
}

// PriceTrends aggregates price_per_hour per observed_at, ascending. Empty
// gpuType or provider match all.
func (s *QueryService) PriceTrends(ctx context.Context, gpuType, provider string, days int) ([]model.TrendPoint, error) {
	since, until := s.window(days, DefaultTrendDays)
	rows, err := s.repo.PriceRecord.AggregateTrends(ctx, gpuType, provider, since, until)
	if err != nil {
		return nil, err
	}

	points := make([]model.TrendPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, database.ToTrendPointDomain(row))
	}
	return points, nil
}

// Snapshots lists snapshot summaries in the window, ascending
func (s *QueryService) Snapshots(ctx context.Context, days int) ([]model.SnapshotSummary, error) {
	since, until := s.window(days, DefaultSnapshotDays)
	rows, err := s.repo.Snapshot.ListBetween(ctx, since, until)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.SnapshotSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, database.ToSnapshotSummaryDomain(row))
	}
	return summaries, nil
}

// Stats returns global, unwindowed statistics. All counts are read in one
// transaction.
func (s *QueryService) Stats(ctx context.Context) (*model.StoreStats, error) {
	stats := &model.StoreStats{}

	err := s.repo.GetDatastore().ExecTx(ctx, func(ctx context.Context) error {
		var err error
		if stats.TotalRecords, err = s.repo.PriceRecord.Count(ctx); err != nil {
			return err
		}
		if stats.TotalRecords == 0 {
			return nil
		}
		if stats.Snapshots, err = s.repo.PriceRecord.CountDistinct(ctx, "observed_at"); err != nil {
			return err
		}
		if stats.Providers, err = s.repo.PriceRecord.CountDistinct(ctx, "provider"); err != nil {
			return err
		}
		if stats.GPUTypes, err = s.repo.PriceRecord.CountDistinct(ctx, "gpu_type"); err != nil {
			return err
		}

		first, ok, err := s.repo.PriceRecord.EarliestObservedAt(ctx)
		if err != nil {
			return err
		}
		if ok {
			stats.FirstObservedAt = &first
		}
		last, ok, err := s.repo.PriceRecord.LatestObservedAt(ctx)
		if err != nil {
			return err
		}
		if ok {
			stats.LastObservedAt = &last
		}
		return nil
	})
	if err != nil {
		logger.ErrorCtx(ctx, "failed to read store statistics: %v", err)
		return nil, asStoreUnavailable("failed to read store statistics", err)
	}
	return stats, nil
}
