package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sakif/snippet-hub/internal/metrics"
)

// Metrics records request count and latency per route pattern. Raw paths
// are never used as labels; they would create a series per snippet id.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
	})
}
