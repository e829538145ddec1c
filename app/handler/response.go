package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gpuprices/internal/model"
	"gpuprices/pkg/logger"
)

// MessageNoData marks a successful query with an empty result
const MessageNoData = "no data"

// respondList writes a list result. Empty lists are reported as "no data",
// not as an error.
func respondList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	body := gin.H{"data": items, "count": len(items)}
	if len(items) == 0 {
		body["message"] = MessageNoData
	}
	c.JSON(http.StatusOK, body)
}

// respondError maps service errors onto status codes
func respondError(c *gin.Context, op string, err error) {
	var verr *model.ValidationError
	switch {
	case errors.Is(err, model.ErrStoreUnavailable):
		logger.ErrorCtx(c.Request.Context(), "%s: %v", op, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": model.ErrStoreUnavailable.Error()})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	default:
		logger.ErrorCtx(c.Request.Context(), "%s: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// intQuery parses an optional integer query parameter; absent means 0
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, name+" must be an integer")
		return 0, false
	}
	return v, true
}
