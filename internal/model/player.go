package model

import "time"

// PlayerID uniquely identifies a player record across the system
type PlayerID string

// PlayersTable is the name of the table holding player records
const PlayersTable = "players"

// Player is one player's self-reported portfolio value
type Player struct {
	ID            PlayerID
	Name          string // unique, used as the natural key for upserts
	CurrentValue  float64
	PreviousValue *float64 // nil until the first update
	LastUpdated   time.Time
}

// NewPlayer creates a record for a first submission
func NewPlayer(id PlayerID, name string, value float64, at time.Time) *Player {
	return &Player{
		ID:           id,
		Name:         name,
		CurrentValue: value,
		LastUpdated:  at,
	}
}

// Revalue shifts the current value into the previous value and installs the new one
func (p *Player) Revalue(value float64, at time.Time) {
	previous := p.CurrentValue
	p.PreviousValue = &previous
	p.CurrentValue = value
	p.LastUpdated = at
}

// HasPrevious reports whether the player has been updated at least once
func (p *Player) HasPrevious() bool {
	return p.PreviousValue != nil
}

// Clone returns a deep copy so callers never share the previous value pointer
func (p *Player) Clone() *Player {
	c := *p
	if p.PreviousValue != nil {
		prev := *p.PreviousValue
		c.PreviousValue = &prev
	}
	return &c
}
