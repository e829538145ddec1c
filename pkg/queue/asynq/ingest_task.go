package asynq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gpuprices/internal/model"
	"gpuprices/pkg/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TypePriceIngest = "prices:ingest"
)

// Ingester writes a batch to the price store
type Ingester interface {
	IngestBatch(ctx context.Context, batch *model.IngestBatch) (*model.IngestResult, error)
}

// IngestTaskID returns the task ID of a batch: its snapshot timestamp plus a
// name-based uuid of the task payload. Only byte-identical submissions share
// an ID; different batches for one timestamp are queued separately and the
// last one processed wins.
func IngestTaskID(observedAt time.Time, payload []byte) string {
	return "ingest:" + strconv.FormatInt(model.NormalizeTimestamp(observedAt).UnixNano(), 10) +
		":" + uuid.NewSHA1(uuid.NameSpaceOID, payload).String()
}

// NewIngestTask builds the asynq task carrying batch
func NewIngestTask(batch *model.IngestBatch) (*asynq.Task, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ingest batch: %w", err)
	}
	return asynq.NewTask(TypePriceIngest, payload), nil
}

// IngestHandler processes prices:ingest tasks
type IngestHandler struct {
	ingester Ingester
}

// NewIngestHandler creates the ingest task handler
func NewIngestHandler(ingester Ingester) *IngestHandler {
	return &IngestHandler{ingester: ingester}
}

// ProcessTask implements asynq.Handler. A malformed payload is not retried;
// store failures are.
func (h *IngestHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var batch model.IngestBatch
	if err := json.Unmarshal(task.Payload(), &batch); err != nil {
		logger.ErrorCtx(ctx, "dropping malformed ingest task: %v", err)
		return fmt.Errorf("invalid ingest payload: %v: %w", err, asynq.SkipRetry)
	}
	if batch.ObservedAt.IsZero() {
		return fmt.Errorf("ingest payload has no observed_at: %w", asynq.SkipRetry)
	}

	result, err := h.ingester.IngestBatch(ctx, &batch)
	if err != nil {
		return fmt.Errorf("failed to ingest batch: %w", err)
	}

	logger.InfoCtx(ctx, "async ingestion done, batch: %s, accepted: %d, rejected: %d",
		result.BatchID, result.Accepted, result.Rejected)
	return nil
}
