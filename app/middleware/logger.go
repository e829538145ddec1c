package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/pretty"

	"gpuprices/pkg/logger"
)

const (
	// HeaderRequestID carries the request trace id
	HeaderRequestID = "X-Request-ID"

	maxLoggedBody = 1000
)

// TraceID attaches a request id to the request context, reusing the
// caller's X-Request-ID when present.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), id))
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Logger writes one access log line per request. POST bodies are logged
// compacted and truncated.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var body string
		if c.Request.Method == http.MethodPost {
			body = readBody(c)
		}

		c.Next()

		status := c.Writer.Status()
		if status == http.StatusNotFound {
			return
		}

		msg := "%3d | %13v | %15s | %s %s"
		args := []interface{}{status, time.Since(start), c.ClientIP(), c.Request.Method, c.Request.RequestURI}
		if body != "" {
			msg += " | body: %s"
			args = append(args, body)
		}
		if status >= http.StatusInternalServerError {
			logger.WarnCtx(c.Request.Context(), msg, args...)
			return
		}
		logger.InfoCtx(c.Request.Context(), msg, args...)
	}
}

func readBody(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	data, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewBuffer(data))
	return CompressBody(data)
}

// CompressBody strips JSON whitespace and truncates long bodies
func CompressBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	compressed := pretty.Ugly(body)
	if len(compressed) > maxLoggedBody {
		return string(compressed[:maxLoggedBody]) + "..."
	}
	return string(compressed)
}
