package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"gpuprices/internal/service"
)

// ReportHandler serves the summary reports over the latest snapshot
type ReportHandler struct {
	queryService *service.QueryService
}

// NewReportHandler creates a new report handler
func NewReportHandler(queryService *service.QueryService) *ReportHandler {
	return &ReportHandler{queryService: queryService}
}

// Providers summarizes the latest snapshot per provider
// @Router /api/v1/reports/providers [get]
func (h *ReportHandler) Providers(c *gin.Context) {
	summaries, err := h.queryService.ProviderSummary(c.Request.Context())
	if err != nil {
		respondError(c, "failed to build provider report", err)
		return
	}
	respondList(c, summaries)
}

// Availability summarizes the latest snapshot per region
// @Router /api/v1/reports/availability [get]
func (h *ReportHandler) Availability(c *gin.Context) {
	regions, err := h.queryService.AvailabilitySummary(c.Request.Context())
	if err != nil {
		respondError(c, "failed to build availability report", err)
		return
	}
	respondList(c, regions)
}

// GPUs summarizes the latest snapshot per GPU type. Offers with an
// unidentified GPU are left out unless include_unknown=true.
// @Router /api/v1/reports/gpus [get]
func (h *ReportHandler) GPUs(c *gin.Context) {
	includeUnknown := false
	if raw := c.Query("include_unknown"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "include_unknown must be a boolean")
			return
		}
		includeUnknown = v
	}

	summaries, err := h.queryService.GPUSummary(c.Request.Context(), !includeUnknown)
	if err != nil {
		respondError(c, "failed to build gpu report", err)
		return
	}
	respondList(c, summaries)
}
