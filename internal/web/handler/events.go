package handler

import (
	"net/http"

	"github.com/mcoot/portfolio-leaderboard/internal/web/sse"
)

// EventsHandler streams leaderboard changes to the browser
type EventsHandler struct {
	hub *sse.Hub
}

// NewEventsHandler creates a new EventsHandler
func NewEventsHandler(hub *sse.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Events serves the SSE stream until the browser leaves
func (h *EventsHandler) Events(w http.ResponseWriter, r *http.Request) {
	sse.ServeSSE(w, r, h.hub)
}
