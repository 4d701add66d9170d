// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"time"

	"gems-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// RequestLogger 是一个 Gin 中间件，记录每个请求的方法、路径、状态码与耗时。
// GMTX 上传可能很大，这里只记录响应大小，不捕获请求/响应体。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"responseSize", c.Writer.Size(),
		)
	}
}
