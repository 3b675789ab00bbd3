package sse

import (
	"encoding/json"
	"log/slog"

	"github.com/mcoot/portfolio-leaderboard/internal/model"
)

// EventPlayersChanged tells pages to re-fetch the leaderboard.
// htmx listens for it with hx-trigger="sse:players-changed".
const EventPlayersChanged = "players-changed"

// Broadcaster turns store change notifications into SSE events
type Broadcaster struct {
	hub    *Hub
	logger *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hub:    hub,
		logger: logger.With(slog.String("component", "sse-broadcaster")),
	}
}

type playersChangedData struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id,omitempty"`
}

// PlayersChanged broadcasts a players-changed event for a store notification.
// The payload is informational; clients always re-fetch the full list.
func (b *Broadcaster) PlayersChanged(ev model.ChangeEvent) {
	data, err := json.Marshal(playersChangedData{
		Type:     string(ev.Type),
		PlayerID: string(ev.PlayerID),
	})
	if err != nil {
		b.logger.Error("sse failed to encode change", slog.Any("error", err))
		return
	}
	b.hub.BroadcastEvent(EventPlayersChanged, string(data))
}
