package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/mcoot/portfolio-leaderboard/internal/api/apierr"
	"github.com/mcoot/portfolio-leaderboard/internal/api/response"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports server and store health
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler creates a health handler; a nil store is not checked
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			WriteError(w, apierr.NewUnavailableError())
			return
		}
	}
	response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
}
