package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPRecorder observes served requests.
type HTTPRecorder interface {
	HTTPRequest(method, route string, status int, elapsed time.Duration)
}

// Metrics records every request under its route pattern; unmatched paths are grouped.
func Metrics(recorder HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.HTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
