package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/portfolio-leaderboard/internal/web/middleware"
	"github.com/mcoot/portfolio-leaderboard/internal/web/templates/components"
	"github.com/mcoot/portfolio-leaderboard/internal/web/templates/layout"
	"github.com/mcoot/portfolio-leaderboard/internal/web/templates/pages"
)

// HomeHandler handles the home page
type HomeHandler struct {
	logger *slog.Logger
}

// NewHomeHandler creates a new HomeHandler
func NewHomeHandler(logger *slog.Logger) *HomeHandler {
	return &HomeHandler{logger: logger}
}

// Home renders the home page
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := pages.HomeData{
		PageData: layout.PageData{
			Title: "Home",
			Flash: middleware.GetFlash(r.Context()),
		},
		Form: components.SubmitFormData{
			// Set after a form post without htmx
			ShowHint: r.URL.Query().Has("submitted"),
		},
	}

	render(w, r, h.logger, http.StatusOK, pages.Home(data))
}
