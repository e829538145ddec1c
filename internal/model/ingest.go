package model

import "time"

// IngestBatch is a normalized record batch handed to ingestion. A zero
// ObservedAt means the ingestion call's wall-clock time.
type IngestBatch struct {
	ObservedAt time.Time     `json:"observed_at,omitempty"`
	Records    []PriceRecord `json:"records"`
}

// IngestResult reports the outcome of one ingestion call
type IngestResult struct {
	BatchID    string             `json:"batch_id"`
	ObservedAt time.Time          `json:"observed_at"`
	Received   int                `json:"received"`
	Accepted   int                `json:"accepted"` // distinct records written
	Rejected   int                `json:"rejected"`
	Duplicates int                `json:"duplicates"` // collapsed within the batch
	Errors     []*ValidationError `json:"errors,omitempty"`
	Summary    *SnapshotSummary   `json:"summary,omitempty"` // nil when nothing was written
}

// Empty reports whether the call wrote nothing
func (r *IngestResult) Empty() bool {
	return r.Accepted == 0
}
