package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gpuprices/internal/model"
	"gpuprices/pkg/interfaces"
	"gpuprices/pkg/logger"
	"gpuprices/pkg/store/database"
	dbmodel "gpuprices/pkg/store/database/model"
)

// IngestionService validates price batches and writes them, together with
// their snapshot summary, in one transaction
type IngestionService struct {
	repo      *database.Repository
	cache     interfaces.LatestCache
	publisher interfaces.SnapshotPublisher
	now       func() time.Time
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo *database.Repository) *IngestionService {
	return &IngestionService{
		repo: repo,
		now:  time.Now,
	}
}

// SetCache sets the latest-snapshot cache invalidated after each commit
func (s *IngestionService) SetCache(cache interfaces.LatestCache) {
	s.cache = cache
}

// SetPublisher sets the feed that receives each committed snapshot summary
func (s *IngestionService) SetPublisher(publisher interfaces.SnapshotPublisher) {
	s.publisher = publisher
}

// IngestBatch ingests a normalized batch
func (s *IngestionService) IngestBatch(ctx context.Context, batch *model.IngestBatch) (*model.IngestResult, error) {
	return s.Ingest(ctx, batch.Records, batch.ObservedAt)
}

// Ingest writes records as the complete snapshot of observedAt (wall-clock
// now when zero). Invalid records are skipped and reported in the result;
// the remaining ones still commit. A batch with nothing valid writes nothing.
// Re-ingesting a timestamp replaces its records and summary.
func (s *IngestionService) Ingest(ctx context.Context, records []model.PriceRecord, observedAt time.Time) (*model.IngestResult, error) {
	return s.ingest(ctx, len(records), func(i int) (model.PriceRecord, error) {
		return records[i], nil
	}, observedAt)
}

// IngestFields is Ingest for records in their flat field representation.
// Items that cannot be converted are rejected like invalid records.
func (s *IngestionService) IngestFields(ctx context.Context, items []map[string]interface{}, observedAt time.Time) (*model.IngestResult, error) {
	return s.ingest(ctx, len(items), func(i int) (model.PriceRecord, error) {
		return model.RecordFromFields(items[i])
	}, observedAt)
}

func (s *IngestionService) ingest(ctx context.Context, n int, record func(i int) (model.PriceRecord, error), observedAt time.Time) (*model.IngestResult, error) {
	if observedAt.IsZero() {
		observedAt = s.now()
	}
	observedAt = model.NormalizeTimestamp(observedAt)

	result := &model.IngestResult{
		BatchID:    uuid.New().String(),
		ObservedAt: observedAt,
		Received:   n,
	}

	valid := make([]model.PriceRecord, 0, n)
	for i := 0; i < n; i++ {
		rec, err := record(i)
		if err == nil {
			err = rec.Validate()
		}
		if err != nil {
			var verr *model.ValidationError
			if !errors.As(err, &verr) {
				verr = &model.ValidationError{Field: "record", Reason: err.Error()}
			}
			verr.Index = i
			result.Errors = append(result.Errors, verr)
			logger.WarnCtx(ctx, "skipping invalid price record, batch: %s, %v", result.BatchID, verr)
			continue
		}
		rec.ObservedAt = observedAt
		valid = append(valid, rec)
	}
	result.Rejected = len(result.Errors)

	deduped, duplicates := model.Dedupe(valid)
	result.Duplicates = duplicates

	if len(deduped) == 0 {
		logger.InfoCtx(ctx, "nothing to ingest, batch: %s, received: %d, rejected: %d",
			result.BatchID, result.Received, result.Rejected)
		return result, nil
	}

	rows := make([]*dbmodel.PriceRecord, 0, len(deduped))
	for _, rec := range deduped {
		rows = append(rows, database.FromPriceRecordDomain(rec, observedAt))
	}
	summary := model.Summarize(observedAt, deduped)

	err := s.repo.GetDatastore().ExecTx(ctx, func(ctx context.Context) error {
		if err := s.repo.PriceRecord.ReplaceAt(ctx, observedAt, rows); err != nil {
			return err
		}
		return s.repo.Snapshot.Upsert(ctx, database.FromSnapshotSummaryDomain(summary))
	})
	if err != nil {
		err = asStoreUnavailable("failed to commit snapshot", err)
		logger.ErrorCtx(ctx, "ingestion failed, batch: %s, observed_at: %s, error: %v",
			result.BatchID, observedAt.Format(time.RFC3339Nano), err)
		return nil, err
	}

	result.Accepted = len(deduped)
	result.Summary = &summary

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, observedAt); err != nil {
			logger.WarnCtx(ctx, "failed to invalidate latest cache, observed_at: %s, error: %v",
				observedAt.Format(time.RFC3339Nano), err)
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(summary)
	}

	logger.InfoCtx(ctx, "snapshot ingested, batch: %s, observed_at: %s, accepted: %d, rejected: %d, duplicates: %d",
		result.BatchID, observedAt.Format(time.RFC3339Nano), result.Accepted, result.Rejected, result.Duplicates)
	return result, nil
}

// asStoreUnavailable makes sure a backend error matches model.ErrStoreUnavailable
func asStoreUnavailable(op string, err error) error {
	if errors.Is(err, model.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", model.ErrStoreUnavailable, op, err)
}
