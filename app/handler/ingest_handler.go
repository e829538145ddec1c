package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gpuprices/internal/model"
	"gpuprices/internal/service"
	"gpuprices/pkg/interfaces"
	"gpuprices/pkg/logger"
)

// IngestRequest is the body of the ingestion routes. Records use the flat
// field representation; observed_at defaults to the time of ingestion.
type IngestRequest struct {
	ObservedAt *time.Time               `json:"observed_at,omitempty"`
	Records    []map[string]interface{} `json:"records"`
}

// IngestHandler accepts price batches
type IngestHandler struct {
	ingestionService *service.IngestionService
	queue            interfaces.IngestQueue
}

// NewIngestHandler creates a new ingest handler; queue may be nil when async
// ingestion is disabled
func NewIngestHandler(ingestionService *service.IngestionService, queue interfaces.IngestQueue) *IngestHandler {
	return &IngestHandler{ingestionService: ingestionService, queue: queue}
}

func decodeIngestRequest(c *gin.Context) (*IngestRequest, bool) {
	var req IngestRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return nil, false
	}
	if req.Records == nil {
		badRequest(c, "records is required")
		return nil, false
	}
	return &req, true
}

func (r *IngestRequest) observedAt() time.Time {
	if r.ObservedAt == nil {
		return time.Time{}
	}
	return *r.ObservedAt
}

// Ingest stores a batch synchronously as one snapshot
// @Summary Ingest a price batch
// @Tags ingest
// @Accept json
// @Produce json
// @Router /api/v1/ingest [post]
func (h *IngestHandler) Ingest(c *gin.Context) {
	req, ok := decodeIngestRequest(c)
	if !ok {
		return
	}

	result, err := h.ingestionService.IngestFields(c.Request.Context(), req.Records, req.observedAt())
	if err != nil {
		respondError(c, "failed to ingest batch", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// IngestAsync converts and validates a batch, then queues it for ingestion.
// Invalid records are rejected up front; a batch with nothing valid is a 400.
// The 202 response carries the task; task.duplicate is true when an identical
// batch for the same observed_at is still queued and this one was dropped.
// @Summary Queue a price batch
// @Tags ingest
// @Accept json
// @Produce json
// @Router /api/v1/ingest/async [post]
func (h *IngestHandler) IngestAsync(c *gin.Context) {
	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "async ingestion is not enabled"})
		return
	}

	req, ok := decodeIngestRequest(c)
	if !ok {
		return
	}

	batch := &model.IngestBatch{ObservedAt: req.observedAt()}
	var rejected []*model.ValidationError
	for i, fields := range req.Records {
		rec, err := model.RecordFromFields(fields)
		if err == nil {
			err = rec.Validate()
		}
		if err != nil {
			var verr *model.ValidationError
			if !errors.As(err, &verr) {
				verr = &model.ValidationError{Field: "record", Reason: err.Error()}
			}
			verr.Index = i
			rejected = append(rejected, verr)
			continue
		}
		batch.Records = append(batch.Records, rec)
	}

	if len(batch.Records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid records", "errors": rejected})
		return
	}

	info, err := h.queue.EnqueueIngest(c.Request.Context(), batch)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to enqueue ingest batch: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to enqueue batch"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task":     info,
		"rejected": len(rejected),
		"errors":   rejected,
	})
}
