package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kitchenledger/backend/internal/infrastructure/telemetry"
)

// Profiling tags each request goroutine with its route and method so
// profiles can be split by endpoint. Health probes are skipped.
func Profiling() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasSuffix(c.Request.URL.Path, "/health") {
			c.Next()
			return
		}
		labels := map[string]string{
			telemetry.ProfilingLabelMethod: c.Request.Method,
			telemetry.ProfilingLabelRoute:  c.FullPath(),
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
