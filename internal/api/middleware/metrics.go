package middleware

import (
	"strconv"

	"github.com/bassista/go_gym/internal/metrics"
	"github.com/gin-gonic/gin"
)

// RequestMetrics counts handled requests by method and status code.
func RequestMetrics(m *metrics.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		m.CounterRequests.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
