package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/portfolio-leaderboard/internal/api/request"
	"github.com/mcoot/portfolio-leaderboard/internal/api/response"
	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/services/leaderboard"
	"github.com/mcoot/portfolio-leaderboard/internal/services/submission"
)

// PlayersHandler handles leaderboard endpoints
type PlayersHandler struct {
	submission  *submission.Service
	leaderboard *leaderboard.Service
}

// NewPlayersHandler creates a new players handler
func NewPlayersHandler(sub *submission.Service, lb *leaderboard.Service) *PlayersHandler {
	return &PlayersHandler{
		submission:  sub,
		leaderboard: lb,
	}
}

// List handles GET /players
func (h *PlayersHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboard.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayersResponseFromEntries(entries))
}

// Get handles GET /players/{id}
func (h *PlayersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	player, err := h.leaderboard.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromEntry(leaderboard.NewEntry(0, player)))
}

// Submit handles POST /players
func (h *PlayersHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(string(req.Value)) == "" {
		WriteError(w, NewInvalidRequestError("name and value are required"))
		return
	}

	result, err := h.submission.Submit(r.Context(), req.Name, string(req.Value))
	if err != nil {
		WriteError(w, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == submission.OutcomeAdded {
		status = http.StatusCreated
	}
	response.JSON(w, status, response.SubmitResponseFromResult(result))
}

// Delete handles DELETE /players/{id}
func (h *PlayersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	player, err := h.leaderboard.Delete(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromEntry(leaderboard.NewEntry(0, player)))
}
