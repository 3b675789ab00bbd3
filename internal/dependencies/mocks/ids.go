package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/portfolio-leaderboard/internal/dependencies/ids"
	"github.com/mcoot/portfolio-leaderboard/internal/model"
)

// MockIDs is a mock implementation of ids.Generator for testing
type MockIDs struct {
	mu sync.Mutex

	// Queued is a queue of IDs to hand out before falling back to a counter
	Queued []model.PlayerID
	index  int
	count  int
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a new MockIDs
func NewMockIDs() *MockIDs {
	return &MockIDs{}
}

// NewPlayerID returns the next queued ID, or "player-N" once the queue is empty
func (m *MockIDs) NewPlayerID() model.PlayerID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index < len(m.Queued) {
		id := m.Queued[m.index]
		m.index++
		return id
	}
	m.count++
	return model.PlayerID(fmt.Sprintf("player-%d", m.count))
}

// Queue adds IDs to the result queue
func (m *MockIDs) Queue(values ...model.PlayerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queued = append(m.Queued, values...)
}

// Reset clears all queued results and the fallback counter
func (m *MockIDs) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queued = nil
	m.index = 0
	m.count = 0
}
