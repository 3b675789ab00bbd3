package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/portfolio-leaderboard/internal/metrics"
	"github.com/mcoot/portfolio-leaderboard/internal/middleware"
)

// Logging creates logging middleware for the web interface
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger)
}

// Metrics records request counts and durations for the web interface
func Metrics(m metrics.Recorder) func(http.Handler) http.Handler {
	return middleware.Metrics(m)
}
