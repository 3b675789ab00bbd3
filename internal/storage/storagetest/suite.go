// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/storage"
)

// StoreSuite runs the store contract against a backend.
// Backends embed it and set NewStore in their SetupTest.
type StoreSuite struct {
	suite.Suite

	// NewStore returns a fresh, empty store for each test
	NewStore func() storage.Store

	Store storage.Store
	Ctx   context.Context
	Now   time.Time
}

// SetupTest creates the store under test
func (s *StoreSuite) SetupTest() {
	s.Require().NotNil(s.NewStore, "NewStore must be set")
	s.Store = s.NewStore()
	s.Ctx = context.Background()
	s.Now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// TearDownTest closes the store under test
func (s *StoreSuite) TearDownTest() {
	if s.Store != nil {
		_ = s.Store.Close()
	}
}

func (s *StoreSuite) insert(name string, value float64) *model.Player {
	p, err := s.Store.InsertPlayer(s.Ctx, name, value, s.Now)
	s.Require().NoError(err)
	return p
}

func (s *StoreSuite) TestPingUntilClosed() {
	s.NoError(s.Store.Ping(s.Ctx))
	s.Require().NoError(s.Store.Close())
	s.Error(s.Store.Ping(s.Ctx))
}

// Insert / get

func (s *StoreSuite) TestInsertAssignsIDAndOmitsPrevious() {
	p := s.insert("Alice", 100000)

	s.NotEmpty(p.ID)
	s.Equal("Alice", p.Name)
	s.Equal(100000.0, p.CurrentValue)
	s.Nil(p.PreviousValue)
	s.True(s.Now.Equal(p.LastUpdated))
}

func (s *StoreSuite) TestGetPlayer() {
	p := s.insert("Alice", 100000)

	got, err := s.Store.GetPlayer(s.Ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.Equal("Alice", got.Name)
	s.Equal(100000.0, got.CurrentValue)
}

func (s *StoreSuite) TestGetPlayerNotFound() {
	_, err := s.Store.GetPlayer(s.Ctx, "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StoreSuite) TestGetPlayerByName() {
	p := s.insert("Alice", 100000)

	got, err := s.Store.GetPlayerByName(s.Ctx, "Alice")
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
}

func (s *StoreSuite) TestGetPlayerByNameIsExact() {
	s.insert("Alice", 100000)

	_, err := s.Store.GetPlayerByName(s.Ctx, "alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StoreSuite) TestInsertDuplicateNameRejected() {
	s.insert("Alice", 100000)

	_, err := s.Store.InsertPlayer(s.Ctx, "Alice", 5, s.Now)
	s.ErrorIs(err, model.ErrNameTaken)

	players, err := s.Store.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Len(players, 1)
	s.Equal(100000.0, players[0].CurrentValue)
}

// Update

func (s *StoreSuite) TestUpdateShiftsCurrentIntoPrevious() {
	p := s.insert("Alice", 100000)
	later := s.Now.Add(time.Hour)

	updated, err := s.Store.UpdatePlayerByName(s.Ctx, "Alice", 105000, later)
	s.Require().NoError(err)
	s.Equal(p.ID, updated.ID)
	s.Equal(105000.0, updated.CurrentValue)
	s.Require().NotNil(updated.PreviousValue)
	s.Equal(100000.0, *updated.PreviousValue)
	s.True(later.Equal(updated.LastUpdated))

	stored, err := s.Store.GetPlayer(s.Ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(105000.0, stored.CurrentValue)
	s.Require().NotNil(stored.PreviousValue)
	s.Equal(100000.0, *stored.PreviousValue)
}

func (s *StoreSuite) TestUpdateKeepsOnlyOnePreviousValue() {
	s.insert("Alice", 1)
	_, err := s.Store.UpdatePlayerByName(s.Ctx, "Alice", 2, s.Now)
	s.Require().NoError(err)
	updated, err := s.Store.UpdatePlayerByName(s.Ctx, "Alice", 3, s.Now)
	s.Require().NoError(err)

	s.Equal(3.0, updated.CurrentValue)
	s.Equal(2.0, *updated.PreviousValue)
}

func (s *StoreSuite) TestUpdateMissingName() {
	_, err := s.Store.UpdatePlayerByName(s.Ctx, "Nobody", 1, s.Now)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// List

func (s *StoreSuite) TestListOrderedByCurrentValueDescending() {
	s.insert("Low", 10)
	s.insert("High", 1000)
	s.insert("Mid", 500.5)
	s.insert("Zero", 0)
	_, err := s.Store.UpdatePlayerByName(s.Ctx, "Low", 750, s.Now)
	s.Require().NoError(err)

	players, err := s.Store.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 4)

	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
		if i > 0 {
			s.GreaterOrEqual(players[i-1].CurrentValue, p.CurrentValue)
		}
	}
	s.Equal([]string{"High", "Low", "Mid", "Zero"}, names)
}

func (s *StoreSuite) TestListEmpty() {
	players, err := s.Store.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Empty(players)
}

// Delete

func (s *StoreSuite) TestDeleteRemovesExactlyThatPlayer() {
	alice := s.insert("Alice", 100)
	bob := s.insert("Bob", 200)

	deleted, err := s.Store.DeletePlayer(s.Ctx, alice.ID, s.Now)
	s.Require().NoError(err)
	s.Equal("Alice", deleted.Name)

	players, err := s.Store.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 1)
	s.Equal(bob.ID, players[0].ID)

	_, err = s.Store.GetPlayerByName(s.Ctx, "Alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StoreSuite) TestDeleteFreesName() {
	alice := s.insert("Alice", 100)
	_, err := s.Store.DeletePlayer(s.Ctx, alice.ID, s.Now)
	s.Require().NoError(err)

	again := s.insert("Alice", 50)
	s.NotEqual(alice.ID, again.ID)
	s.Nil(again.PreviousValue)
}

func (s *StoreSuite) TestDeleteMissingChangesNothing() {
	s.insert("Alice", 100)

	_, err := s.Store.DeletePlayer(s.Ctx, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", s.Now)
	s.ErrorIs(err, model.ErrPlayerNotFound)

	players, err := s.Store.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Len(players, 1)
}

// Notifications

func (s *StoreSuite) expectEvent(sub storage.Subscription, want model.ChangeType) model.ChangeEvent {
	s.T().Helper()
	select {
	case ev, ok := <-sub.Events():
		s.Require().True(ok, "subscription closed while waiting for %s", want)
		s.Equal(want, ev.Type)
		s.Equal(model.PlayersTable, ev.Table)
		return ev
	case <-time.After(5 * time.Second):
		s.FailNow("no notification received", "waiting for %s", want)
	}
	return model.ChangeEvent{}
}

func (s *StoreSuite) TestSubscribeReceivesAllChangeTypes() {
	sub, err := s.Store.Subscribe(s.Ctx)
	s.Require().NoError(err)
	defer sub.Close()

	p := s.insert("Alice", 100)
	ev := s.expectEvent(sub, model.ChangeInsert)
	s.Equal(p.ID, ev.PlayerID)

	_, err = s.Store.UpdatePlayerByName(s.Ctx, "Alice", 200, s.Now)
	s.Require().NoError(err)
	ev = s.expectEvent(sub, model.ChangeUpdate)
	s.Equal(p.ID, ev.PlayerID)

	_, err = s.Store.DeletePlayer(s.Ctx, p.ID, s.Now)
	s.Require().NoError(err)
	ev = s.expectEvent(sub, model.ChangeDelete)
	s.Equal(p.ID, ev.PlayerID)
}

func (s *StoreSuite) TestSubscribersAreIndependent() {
	a, err := s.Store.Subscribe(s.Ctx)
	s.Require().NoError(err)
	defer a.Close()
	b, err := s.Store.Subscribe(s.Ctx)
	s.Require().NoError(err)
	defer b.Close()

	s.insert("Alice", 100)

	var wg sync.WaitGroup
	for _, sub := range []storage.Subscription{a, b} {
		wg.Add(1)
		go func(sub storage.Subscription) {
			defer wg.Done()
			select {
			case <-sub.Events():
			case <-time.After(5 * time.Second):
				s.Fail("subscriber did not receive event")
			}
		}(sub)
	}
	wg.Wait()
}

func (s *StoreSuite) TestUnsubscribeClosesEvents() {
	sub, err := s.Store.Subscribe(s.Ctx)
	s.Require().NoError(err)
	s.Require().NoError(sub.Close())

	s.insert("Alice", 100)

	// Drain anything delivered before close; channel must end
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
		case <-deadline:
			s.FailNow("events channel not closed after Close")
		}
	}
}

func (s *StoreSuite) TestFailedWritesDoNotNotify() {
	s.insert("Alice", 100)

	sub, err := s.Store.Subscribe(s.Ctx)
	s.Require().NoError(err)
	defer sub.Close()

	_, err = s.Store.InsertPlayer(s.Ctx, "Alice", 1, s.Now)
	s.Require().ErrorIs(err, model.ErrNameTaken)
	_, err = s.Store.DeletePlayer(s.Ctx, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", s.Now)
	s.Require().ErrorIs(err, model.ErrPlayerNotFound)

	select {
	case ev := <-sub.Events():
		s.Failf("unexpected notification", "%+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
