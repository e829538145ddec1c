package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"gpuprices/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery converts a panic into a 500 response. The stack is included in
// the body only in debug mode.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()
				logger.ErrorCtx(c.Request.Context(), "panic recovered: %v\nstack:\n%s", err, string(stack))

				body := gin.H{"error": "internal server error"}
				if gin.Mode() == gin.DebugMode {
					body["panic"] = fmt.Sprint(err)
					body["stack"] = string(stack)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, body)
			}
		}()

		c.Next()
	}
}
