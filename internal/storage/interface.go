package storage

import (
	"context"
	"time"

	"github.com/mcoot/portfolio-leaderboard/internal/model"
)

// Store defines the interface for player persistence and change notification.
// Every backend enforces name uniqueness and orders listings by current value.
type Store interface {
	// ListPlayers returns all players ordered by current value, highest first
	ListPlayers(ctx context.Context) ([]*model.Player, error)
	// GetPlayer returns the player with the given ID or model.ErrPlayerNotFound
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	// GetPlayerByName returns the player with exactly this name or model.ErrPlayerNotFound
	GetPlayerByName(ctx context.Context, name string) (*model.Player, error)

	// InsertPlayer creates a new player, assigning its ID.
	// Returns model.ErrNameTaken if a player with the name already exists.
	InsertPlayer(ctx context.Context, name string, value float64, at time.Time) (*model.Player, error)
	// UpdatePlayerByName atomically shifts the current value into the previous
	// value and installs the new one. Returns model.ErrPlayerNotFound if absent.
	UpdatePlayerByName(ctx context.Context, name string, value float64, at time.Time) (*model.Player, error)
	// DeletePlayer removes the player with the given ID and returns the removed record.
	// at stamps the change notification. Returns model.ErrPlayerNotFound if absent.
	DeletePlayer(ctx context.Context, id model.PlayerID, at time.Time) (*model.Player, error)

	// Subscribe opens a change notification stream for the players table
	Subscribe(ctx context.Context) (Subscription, error)

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error

	// Close releases the store's connections
	Close() error
}

// Subscription is a cancellable stream of change notifications.
// Events carries no guarantee beyond "something changed"; it is closed when
// the subscription ends, either through Close or because the store went away.
type Subscription interface {
	Events() <-chan model.ChangeEvent
	Close() error
}
