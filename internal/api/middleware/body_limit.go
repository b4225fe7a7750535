package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"maint-engine/backend/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// 超限请求在绑定时失败，处理器未写响应时统一返回 413
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		for _, ge := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(ge.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
