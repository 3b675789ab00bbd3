package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/portfolio-leaderboard/internal/api/handler"
	"github.com/mcoot/portfolio-leaderboard/internal/api/middleware"
	"github.com/mcoot/portfolio-leaderboard/internal/metrics"
	"github.com/mcoot/portfolio-leaderboard/internal/services/leaderboard"
	"github.com/mcoot/portfolio-leaderboard/internal/services/submission"
)

// Prefix is the path every API route lives under
const Prefix = "/api/v1"

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Submission  *submission.Service
	Leaderboard *leaderboard.Service
	Metrics     metrics.Recorder
	// Store is pinged by the health check; nil skips the check
	Store handler.Pinger
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop{}
	}

	playersHandler := handler.NewPlayersHandler(cfg.Submission, cfg.Leaderboard)
	healthHandler := handler.NewHealthHandler(cfg.Store)

	// Registered on the root router so method mismatches answer 405
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))

	r.HandleFunc(Prefix+"/players", playersHandler.List).Methods(http.MethodGet)
	r.HandleFunc(Prefix+"/players", playersHandler.Submit).Methods(http.MethodPost)
	r.HandleFunc(Prefix+"/players/{id}", playersHandler.Get).Methods(http.MethodGet)
	r.HandleFunc(Prefix+"/players/{id}", playersHandler.Delete).Methods(http.MethodDelete)

	r.HandleFunc(Prefix+"/health", healthHandler.Health).Methods(http.MethodGet)

	return r
}
