package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/services/leaderboard"
	"github.com/mcoot/portfolio-leaderboard/internal/web/middleware"
	"github.com/mcoot/portfolio-leaderboard/internal/web/templates/components"
	"github.com/mcoot/portfolio-leaderboard/internal/web/templates/layout"
	"github.com/mcoot/portfolio-leaderboard/internal/web/templates/pages"
)

// Toast messages for deletion
const (
	msgDeleteFailed   = "Failed to delete player"
	msgPlayerNotFound = "Player not found"
)

// LeaderboardHandler serves the leaderboard fragment and deletion
type LeaderboardHandler struct {
	leaderboard *leaderboard.Service
	logger      *slog.Logger
}

// NewLeaderboardHandler creates a new LeaderboardHandler
func NewLeaderboardHandler(svc *leaderboard.Service, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboard: svc,
		logger:      logger.With(slog.String("component", "web-leaderboard")),
	}
}

// List renders the ranked leaderboard fragment. It is re-fetched by the page
// on load and on every players-changed event.
func (h *LeaderboardHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboard.List(r.Context())
	if err != nil {
		h.logger.Error("failed to load leaderboard", slog.String("error", err.Error()))
		// htmx does not swap error responses, so the current list stays
		http.Error(w, "Failed to load leaderboard", http.StatusInternalServerError)
		return
	}

	render(w, r, h.logger, http.StatusOK, components.Leaderboard(entries))
}

// ConfirmDelete renders the confirmation page for browsers without JavaScript
func (h *LeaderboardHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	p, err := h.leaderboard.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			middleware.SetFlash(w, "error", msgPlayerNotFound)
		} else {
			h.logger.Error("failed to load player", slog.String("player_id", string(id)), slog.String("error", err.Error()))
			middleware.SetFlash(w, "error", msgDeleteFailed)
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	render(w, r, h.logger, http.StatusOK, pages.ConfirmDelete(pages.ConfirmDeleteData{
		PageData: layout.PageData{Title: "Delete " + p.Name},
		Player:   p,
	}))
}

// Delete removes a player once the user has confirmed
func (h *LeaderboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	kind, message := "success", ""
	p, err := h.leaderboard.Delete(r.Context(), id)
	switch {
	case err == nil:
		message = leaderboard.RemovedMessage(p.Name)
	case errors.Is(err, model.ErrPlayerNotFound):
		kind, message = "error", msgPlayerNotFound
	default:
		// Logged by the service
		kind, message = "error", msgDeleteFailed
	}

	if !isHTMX(r) {
		middleware.SetFlash(w, kind, message)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	// Re-render from the store; the list is never patched locally
	entries, listErr := h.leaderboard.List(r.Context())
	if listErr != nil {
		h.logger.Error("failed to load leaderboard", slog.String("error", listErr.Error()))
		w.Header().Set("HX-Reswap", "none")
		render(w, r, h.logger, http.StatusOK, components.ToastOOB(kind, message))
		return
	}
	render(w, r, h.logger, http.StatusOK, components.Leaderboard(entries), components.ToastOOB(kind, message))
}
