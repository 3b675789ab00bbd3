package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/portfolio-leaderboard/internal/metrics"
	"github.com/mcoot/portfolio-leaderboard/internal/services/leaderboard"
	"github.com/mcoot/portfolio-leaderboard/internal/services/submission"
	"github.com/mcoot/portfolio-leaderboard/internal/web/handler"
	"github.com/mcoot/portfolio-leaderboard/internal/web/middleware"
	"github.com/mcoot/portfolio-leaderboard/internal/web/sse"
)

// RouterConfig holds configuration for the web router
type RouterConfig struct {
	Logger      *slog.Logger
	Submission  *submission.Service
	Leaderboard *leaderboard.Service
	Hub         *sse.Hub
	Metrics     metrics.Recorder
}

// NewRouter creates a new web router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	m := cfg.Metrics
	if m == nil {
		m = metrics.Noop{}
	}

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	metricsMiddleware := middleware.Metrics(m)
	flashMiddleware := middleware.Flash()

	// Create handlers
	homeHandler := handler.NewHomeHandler(cfg.Logger)
	playersHandler := handler.NewPlayersHandler(cfg.Submission, cfg.Logger)
	leaderboardHandler := handler.NewLeaderboardHandler(cfg.Leaderboard, cfg.Logger)
	eventsHandler := handler.NewEventsHandler(cfg.Hub)

	// Apply global middleware to all routes
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(metricsMiddleware)

	// Fragments and the event stream must not consume a pending flash
	r.HandleFunc("/events", eventsHandler.Events).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard", leaderboardHandler.List).Methods(http.MethodGet)

	pages := r.NewRoute().Subrouter()
	pages.Use(flashMiddleware)
	pages.HandleFunc("/", homeHandler.Home).Methods(http.MethodGet)
	pages.HandleFunc("/players", playersHandler.Submit).Methods(http.MethodPost)
	pages.HandleFunc("/players/{id}/delete", leaderboardHandler.ConfirmDelete).Methods(http.MethodGet)
	pages.HandleFunc("/players/{id}/delete", leaderboardHandler.Delete).Methods(http.MethodPost)

	return r
}
