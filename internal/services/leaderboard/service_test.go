package leaderboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"github.com/mcoot/portfolio-leaderboard/internal/dependencies/mocks"
	"github.com/mcoot/portfolio-leaderboard/internal/metrics"
	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/storage/memory"
	"github.com/mcoot/portfolio-leaderboard/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingMetrics records deletion and notification counts
type countingMetrics struct {
	metrics.Noop

	mu            sync.Mutex
	deletions     map[string]int
	notifications map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		deletions:     make(map[string]int),
		notifications: make(map[string]int),
	}
}

func (m *countingMetrics) IncDeletions(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletions[result]++
}

func (m *countingMetrics) IncNotifications(changeType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[changeType]++
}

func (m *countingMetrics) deleted(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletions[result]
}

func (m *countingMetrics) notified(changeType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifications[changeType]
}

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	ids     *mocks.MockIDs
	clock   *mocks.MockClock
	metrics *countingMetrics
	service *Service
	ctx     context.Context
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ids = mocks.NewMockIDs()
	s.storage = memory.New(s.ids)
	s.metrics = newCountingMetrics()
	s.now = time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	s.clock = mocks.NewMockClock(s.now)
	s.service = New(s.storage, s.clock, s.metrics, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) TearDownTest() {
	_ = s.storage.Close()
}

func (s *ServiceSuite) insert(name string, value float64) *model.Player {
	p, err := s.storage.InsertPlayer(s.ctx, name, value, s.now)
	s.Require().NoError(err)
	return p
}

// List

func (s *ServiceSuite) TestListRanksByValue() {
	s.insert("Carol", 50)
	s.insert("Alice", 300)
	s.insert("Bob", 200)
	s.insert("Dave", 10)

	entries, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 4)

	for i, e := range entries {
		s.Equal(i+1, e.Rank)
		if i > 0 {
			s.GreaterOrEqual(entries[i-1].Player.CurrentValue, e.Player.CurrentValue)
		}
	}
	s.Equal("Alice", entries[0].Player.Name)
	s.Equal("rank-gold", entries[0].Badge())
	s.Equal("rank-silver", entries[1].Badge())
	s.Equal("rank-bronze", entries[2].Badge())
	s.Equal("rank-default", entries[3].Badge())
}

func (s *ServiceSuite) TestListEmpty() {
	entries, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *ServiceSuite) TestEntryFormatting() {
	s.insert("Alice", 100000)
	_, err := s.storage.UpdatePlayerByName(s.ctx, "Alice", 105000, s.now)
	s.Require().NoError(err)
	s.insert("Bob", 42)

	entries, err := s.service.List(s.ctx)
	s.Require().NoError(err)

	alice := entries[0]
	s.Equal("$105,000.00", alice.Value())
	s.Equal("Jan 2, 2024", alice.Updated())
	s.Require().NotNil(alice.Change)
	s.Equal("+5.00%", alice.Change.Label())
	s.Equal(DirectionUp, alice.Change.Direction)

	s.Nil(entries[1].Change, "no previous value, no indicator")
}

func (s *ServiceSuite) TestZeroPreviousValueHasNoIndicator() {
	s.insert("Alice", 0)
	_, err := s.storage.UpdatePlayerByName(s.ctx, "Alice", 10, s.now)
	s.Require().NoError(err)

	entries, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Nil(entries[0].Change)
}

// Delete

func (s *ServiceSuite) TestDeleteRemovesPlayer() {
	alice := s.insert("Alice", 1)
	s.insert("Bob", 2)

	deleted, err := s.service.Delete(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal("Alice", deleted.Name)

	entries, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("Bob", entries[0].Player.Name)
	s.Equal(1, entries[0].Rank)
	s.Equal(1, s.metrics.deleted("deleted"))
}

func (s *ServiceSuite) TestDeleteUnknownChangesNothing() {
	s.insert("Alice", 1)

	_, err := s.service.Delete(s.ctx, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	entries, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Len(entries, 1)
	s.Equal(1, s.metrics.deleted("not_found"))
}

func (s *ServiceSuite) TestDeleteStampsNotificationWithClock() {
	alice := s.insert("Alice", 1)
	sub, err := s.storage.Subscribe(s.ctx)
	s.Require().NoError(err)
	defer sub.Close()

	s.clock.Advance(time.Hour)
	_, err = s.service.Delete(s.ctx, alice.ID)
	s.Require().NoError(err)

	select {
	case ev := <-sub.Events():
		s.Equal(model.ChangeDelete, ev.Type)
		s.True(s.now.Add(time.Hour).Equal(ev.Timestamp), "got %s", ev.Timestamp)
	case <-time.After(time.Second):
		s.FailNow("no delete notification")
	}
}

func (s *ServiceSuite) TestGet() {
	alice := s.insert("Alice", 1)

	got, err := s.service.Get(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal("Alice", got.Name)

	_, err = s.service.Get(s.ctx, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Watch

func (s *ServiceSuite) TestWatchDeliversEveryChange() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	var (
		mu   sync.Mutex
		seen []model.ChangeType
	)
	done := make(chan error, 1)
	go func() {
		done <- s.service.Watch(ctx, func(ev model.ChangeEvent) {
			mu.Lock()
			seen = append(seen, ev.Type)
			mu.Unlock()
		})
	}()
	s.Eventually(func() bool { return s.storage.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	p := s.insert("Alice", 1)
	_, err := s.storage.UpdatePlayerByName(s.ctx, "Alice", 2, s.now)
	s.Require().NoError(err)
	_, err = s.service.Delete(s.ctx, p.ID)
	s.Require().NoError(err)

	s.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	s.Equal([]model.ChangeType{model.ChangeInsert, model.ChangeUpdate, model.ChangeDelete}, seen)
	mu.Unlock()

	s.Equal(1, s.metrics.notified("insert"))

	cancel()
	s.NoError(<-done)
	s.Eventually(func() bool { return s.storage.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
}

func (s *ServiceSuite) TestWatchEndsWhenStoreCloses() {
	done := make(chan error, 1)
	go func() {
		done <- s.service.Watch(s.ctx, func(model.ChangeEvent) {})
	}()
	s.Eventually(func() bool { return s.storage.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	s.Require().NoError(s.storage.Close())

	select {
	case err := <-done:
		s.ErrorIs(err, ErrSubscriptionClosed)
	case <-time.After(time.Second):
		s.FailNow("watch did not return")
	}
}

func (s *ServiceSuite) TestWatchFailsOnClosedStore() {
	s.Require().NoError(s.storage.Close())
	err := s.service.Watch(s.ctx, func(model.ChangeEvent) {})
	s.ErrorIs(err, model.ErrStoreClosed)
}
