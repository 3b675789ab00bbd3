package factory

import (
	"time"

	"github.com/mcoot/portfolio-leaderboard/internal/dependencies/mocks"
	"github.com/mcoot/portfolio-leaderboard/internal/metrics"
	"github.com/mcoot/portfolio-leaderboard/internal/storage/memory"
	"github.com/mcoot/portfolio-leaderboard/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MockIDs   *mocks.MockIDs
	Memory    *memory.Storage
}

// NewTestApp creates an App on an in-memory store with mocked dependencies
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDs()
	store := memory.New(mockIDs)

	app := newWithDependencies(store, mockClock, mockIDs, metrics.Noop{}, testutil.NopLogger())

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MockIDs:   mockIDs,
		Memory:    store,
	}
}
