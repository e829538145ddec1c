package interfaces

import (
	"context"
	"time"

	"gpuprices/internal/model"
)

// IngestQueue defers ingestion of a batch to a background worker
type IngestQueue interface {
	// EnqueueIngest enqueues a batch; enqueueing an identical batch (same
	// observed_at and records) while the first task is still queued is
	// reported as a duplicate, not an error
	EnqueueIngest(ctx context.Context, batch *model.IngestBatch) (*TaskInfo, error)

	// Close closes queue connection
	Close() error
}

// TaskInfo task information (queue level)
type TaskInfo struct {
	ID         string    `json:"id"`
	Queue      string    `json:"queue"`
	ObservedAt time.Time `json:"observed_at"`
	Records    int       `json:"records"`
	Duplicate  bool      `json:"duplicate"` // an identical batch was already queued; nothing new was enqueued
}
