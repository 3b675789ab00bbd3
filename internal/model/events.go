package model

import "time"

// ChangeType identifies what kind of write produced a change notification
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"

	// ChangeResync is emitted when the notification stream may have missed
	// events (e.g. after a reconnect); listeners must re-fetch everything
	ChangeResync ChangeType = "resync"
)

// ChangeEvent signals that something in a watched table changed.
// Listeners should treat it as a hint to re-fetch, not as a diff.
type ChangeEvent struct {
	Type      ChangeType
	Table     string
	PlayerID  PlayerID // Empty for resync events
	Timestamp time.Time
}

// NewChangeEvent creates a change event for the players table
func NewChangeEvent(changeType ChangeType, id PlayerID, at time.Time) ChangeEvent {
	return ChangeEvent{
		Type:      changeType,
		Table:     PlayersTable,
		PlayerID:  id,
		Timestamp: at,
	}
}
