package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcoot/portfolio-leaderboard/internal/model"
)

// Notification is the wire form of a change event, shared by every backend
// that carries events over an external channel (Redis Pub/Sub, Postgres NOTIFY)
type Notification struct {
	Type      string    `json:"type"`
	Schema    string    `json:"schema,omitempty"`
	Table     string    `json:"table"`
	PlayerID  string    `json:"player_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EncodeNotification serializes a change event
func EncodeNotification(ev model.ChangeEvent) ([]byte, error) {
	return json.Marshal(Notification{
		Type:      string(ev.Type),
		Table:     ev.Table,
		PlayerID:  string(ev.PlayerID),
		Timestamp: ev.Timestamp,
	})
}

// DecodeNotification parses a notification payload into a change event
func DecodeNotification(payload []byte) (Notification, model.ChangeEvent, error) {
	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return n, model.ChangeEvent{}, fmt.Errorf("decode notification: %w", err)
	}

	switch t := model.ChangeType(n.Type); t {
	case model.ChangeInsert, model.ChangeUpdate, model.ChangeDelete, model.ChangeResync:
		return n, model.ChangeEvent{
			Type:      t,
			Table:     n.Table,
			PlayerID:  model.PlayerID(n.PlayerID),
			Timestamp: n.Timestamp,
		}, nil
	default:
		return n, model.ChangeEvent{}, fmt.Errorf("decode notification: unknown change type %q", n.Type)
	}
}
