package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gpuprices/internal/service"
)

// PriceHandler serves price and snapshot queries
type PriceHandler struct {
	queryService *service.QueryService
}

// NewPriceHandler creates a new price handler
func NewPriceHandler(queryService *service.QueryService) *PriceHandler {
	return &PriceHandler{queryService: queryService}
}

// Latest returns every offer of the most recent snapshot
// @Summary Latest prices
// @Tags prices
// @Produce json
// @Param provider query string false "Provider filter"
// @Router /api/v1/prices/latest [get]
func (h *PriceHandler) Latest(c *gin.Context) {
	records, err := h.queryService.LatestPrices(c.Request.Context(), c.Query("provider"))
	if err != nil {
		respondError(c, "failed to get latest prices", err)
		return
	}
	respondList(c, records)
}

// History returns the price series of one instance configuration
// @Summary Price history
// @Tags prices
// @Produce json
// @Param instance_type query string true "Instance type"
// @Param provider query string false "Provider"
// @Param region query string false "Region"
// @Param days query int false "Window in days (default 7)"
// @Router /api/v1/prices/history [get]
func (h *PriceHandler) History(c *gin.Context) {
	for _, param := range []string{"instance_type", "provider", "region"} {
		if c.Query(param) == "" {
			badRequest(c, param+" is required")
			return
		}
	}
	days, ok := intQuery(c, "days")
	if !ok {
		return
	}

	points, err := h.queryService.PriceHistory(c.Request.Context(), c.Query("instance_type"), c.Query("provider"), c.Query("region"), days)
	if err != nil {
		respondError(c, "failed to get price history", err)
		return
	}
	respondList(c, points)
}

// Trends returns per-snapshot price aggregates
// @Summary Price trends
// @Tags prices
// @Produce json
// @Param gpu_type query string false "GPU type"
// @Param provider query string false "Provider"
// @Param days query int false "Window in days (default 30)"
// @Router /api/v1/prices/trends [get]
func (h *PriceHandler) Trends(c *gin.Context) {
	days, ok := intQuery(c, "days")
	if !ok {
		return
	}

	points, err := h.queryService.PriceTrends(c.Request.Context(), c.Query("gpu_type"), c.Query("provider"), days)
	if err != nil {
		respondError(c, "failed to get price trends", err)
		return
	}
	respondList(c, points)
}

// BestDeals returns the cheapest offers per GPU of the latest snapshot
// @Router /api/v1/prices/best-deals [get]
func (h *PriceHandler) BestDeals(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}

	records, err := h.queryService.BestDeals(c.Request.Context(), c.Query("gpu_type"), limit)
	if err != nil {
		respondError(c, "failed to get best deals", err)
		return
	}
	respondList(c, records)
}

// ByGPU groups the latest snapshot by GPU type
// @Router /api/v1/prices/by-gpu [get]
func (h *PriceHandler) ByGPU(c *gin.Context) {
	groups, err := h.queryService.LatestByGPU(c.Request.Context())
	if err != nil {
		respondError(c, "failed to group latest prices", err)
		return
	}
	respondList(c, groups)
}

// Snapshots lists snapshot summaries
// @Summary Snapshot summaries
// @Tags snapshots
// @Produce json
// @Param days query int false "Window in days (default 30)"
// @Router /api/v1/snapshots [get]
func (h *PriceHandler) Snapshots(c *gin.Context) {
	days, ok := intQuery(c, "days")
	if !ok {
		return
	}

	summaries, err := h.queryService.Snapshots(c.Request.Context(), days)
	if err != nil {
		respondError(c, "failed to list snapshots", err)
		return
	}
	respondList(c, summaries)
}

// Stats returns global store statistics
// @Router /api/v1/stats [get]
func (h *PriceHandler) Stats(c *gin.Context) {
	stats, err := h.queryService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, "failed to get stats", err)
		return
	}

	body := gin.H{"data": stats}
	if stats.IsEmpty() {
		body["message"] = MessageNoData
	}
	c.JSON(http.StatusOK, body)
}
