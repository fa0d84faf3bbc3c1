// Package metrics exposes the Prometheus collectors for the backend.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled HTTP requests by method, path and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queenrag_http_requests_total",
		Help: "Total number of HTTP requests handled",
	}, []string{"method", "path", "status"})

	// HTTPDuration observes request latency by path.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "queenrag_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	// ChunksIndexed counts chunks written to the vector index.
	ChunksIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "queenrag_chunks_indexed_total",
		Help: "Total number of document chunks written to the vector index",
	})

	// TokensConsumed counts LLM tokens by kind (prompt or completion).
	TokensConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queenrag_llm_tokens_total",
		Help: "Total LLM tokens consumed",
	}, []string{"kind"})
)

// GinMiddleware records request counts and latency for every route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}
}
