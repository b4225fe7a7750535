package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"maint-engine/backend/pkg/metrics"
)

// Metrics 按路由模板记录请求数与耗时，m 为 nil 时不记录
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
