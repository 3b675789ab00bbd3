package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mcoot/portfolio-leaderboard/internal/services/submission"
	"github.com/mcoot/portfolio-leaderboard/internal/web/middleware"
	"github.com/mcoot/portfolio-leaderboard/internal/web/templates/components"
)

// Toast messages for submissions
const (
	msgPlayerAdded      = "Player added!"
	msgPortfolioUpdated = "Portfolio updated!"
	msgInvalidValue     = "Please enter a valid portfolio value"
	msgInProgress       = "A submission for this name is already in progress"
	msgWriteFailed      = "Something went wrong!"
)

// PlayersHandler handles portfolio submissions
type PlayersHandler struct {
	submission *submission.Service
	logger     *slog.Logger
}

// NewPlayersHandler creates a new PlayersHandler
func NewPlayersHandler(svc *submission.Service, logger *slog.Logger) *PlayersHandler {
	return &PlayersHandler{
		submission: svc,
		logger:     logger.With(slog.String("component", "web-players")),
	}
}

// Submit adds or updates a player from the form
func (h *PlayersHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.respond(w, r, components.SubmitFormData{}, "error", "Invalid form data")
		return
	}

	name := r.PostFormValue("name")
	value := r.PostFormValue("value")
	form := components.SubmitFormData{Name: name, Value: value}

	res, err := h.submission.Submit(r.Context(), name, value)
	switch {
	case errors.Is(err, submission.ErrInvalidValue):
		h.respond(w, r, form, "error", msgInvalidValue)
	case errors.Is(err, submission.ErrSubmissionInProgress):
		h.respond(w, r, form, "info", msgInProgress)
	case err != nil:
		// Logged by the service
		h.respond(w, r, form, "error", msgWriteFailed)
	case res.Outcome == submission.OutcomeIgnored:
		h.respond(w, r, form, "", "")
	case res.Outcome == submission.OutcomeAdded:
		h.respond(w, r, components.SubmitFormData{ShowHint: true}, "success", msgPlayerAdded)
	default:
		h.respond(w, r, components.SubmitFormData{ShowHint: true}, "success", msgPortfolioUpdated)
	}
}

// respond re-renders the form for htmx, or redirects home with a flash.
// An empty kind sends no toast.
func (h *PlayersHandler) respond(w http.ResponseWriter, r *http.Request, form components.SubmitFormData, kind, message string) {
	if !isHTMX(r) {
		if kind != "" {
			middleware.SetFlash(w, kind, message)
		}
		target := "/"
		if form.ShowHint {
			target = "/?submitted=1"
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	if kind == "" {
		render(w, r, h.logger, http.StatusOK, components.SubmitForm(form))
		return
	}
	render(w, r, h.logger, http.StatusOK, components.SubmitForm(form), components.ToastOOB(kind, message))
}
