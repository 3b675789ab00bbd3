package ids

import (
	"github.com/google/uuid"

	"github.com/mcoot/portfolio-leaderboard/internal/model"
)

// Generator produces identifiers for new records and can be mocked for testing
type Generator interface {
	NewPlayerID() model.PlayerID
}

// UUIDGenerator implements Generator with random (v4) UUIDs
type UUIDGenerator struct{}

// New creates a new UUIDGenerator
func New() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewPlayerID returns a fresh random UUID
func (g *UUIDGenerator) NewPlayerID() model.PlayerID {
	return model.PlayerID(uuid.NewString())
}

// Valid reports whether s is a well-formed UUID, the format every generated ID has
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
