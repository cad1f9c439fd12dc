package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-schedule-api/internal/service"
)

const requestStartKey = "requestStart"

// Observe stamps the request start and, once the handler chain returns,
// records latency and status under the route template. Requests that match
// no route share the "unmatched" label to keep label cardinality bounded.
func Observe(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(requestStartKey, start)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// ResponseMeta builds the meta block for responses served from a cache-aware
// service: whether the payload was cached and the time spent so far.
func ResponseMeta(c *gin.Context, cacheHit bool) gin.H {
	meta := gin.H{"cache_hit": cacheHit, "processing_time_ms": int64(0)}
	if v, ok := c.Get(requestStartKey); ok {
		if start, ok := v.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
	return meta
}
