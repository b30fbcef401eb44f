package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/palletspace/booking-service/pkg/metrics"
)

const unmatchedRoute = "unmatched"

// MetricsMiddleware records request counts, latency and in-flight requests.
// Routes are labelled by their pattern, so /bookings/:id is one series.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		m.IncrementHTTPRequestsInFlight()
		defer func() {
			m.DecrementHTTPRequestsInFlight()
			route := c.FullPath()
			if route == "" {
				route = unmatchedRoute
			}
			m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
		}()

		c.Next()
	}
}

// MetricsEndpoint serves the Prometheus registry
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	return gin.WrapH(m.Handler())
}
