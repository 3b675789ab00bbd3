package middleware

import (
	"net/http"
	"time"

	"github.com/mcoot/portfolio-leaderboard/internal/metrics"
)

// Metrics records request count and duration per route template.
// It must run inside a mux router so the matched route is known.
func Metrics(m metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := NewResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			route := RouteName(r)
			m.IncRequestsTotal(route, r.Method, wrapped.Status())
			m.ObserveRequestDuration(route, r.Method, time.Since(start))
		})
	}
}
