package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/portfolio-leaderboard/internal/dependencies/mocks"
	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/storage"
	"github.com/mcoot/portfolio-leaderboard/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.StoreSuite
	ids *mocks.MockIDs
}

func TestStorageSuite(t *testing.T) {
	s := new(StorageSuite)
	s.NewStore = func() storage.Store {
		s.ids = mocks.NewMockIDs()
		return New(s.ids)
	}
	suite.Run(t, s)
}

func (s *StorageSuite) TestInsertUsesGeneratedID() {
	s.ids.Queue("alice-id")

	p, err := s.Store.InsertPlayer(s.Ctx, "Alice", 1, s.Now)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice-id"), p.ID)
}

func (s *StorageSuite) TestReturnedRecordsAreCopies() {
	p, err := s.Store.InsertPlayer(s.Ctx, "Alice", 1, s.Now)
	s.Require().NoError(err)
	p.CurrentValue = 999

	stored, err := s.Store.GetPlayer(s.Ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(1.0, stored.CurrentValue)
}

func (s *StorageSuite) TestSubscriptionReleasedOnContextCancel() {
	mem := s.Store.(*Storage)
	ctx, cancel := context.WithCancel(s.Ctx)

	_, err := mem.Subscribe(ctx)
	s.Require().NoError(err)
	s.Equal(1, mem.SubscriberCount())

	cancel()
	s.Eventually(func() bool { return mem.SubscriberCount() == 0 }, time.Second, 10*time.Millisecond)
}

func (s *StorageSuite) TestClosedStoreRejectsWrites() {
	s.Require().NoError(s.Store.Close())

	_, err := s.Store.InsertPlayer(s.Ctx, "Alice", 1, s.Now)
	s.ErrorIs(err, model.ErrStoreClosed)
	_, err = s.Store.Subscribe(s.Ctx)
	s.ErrorIs(err, model.ErrStoreClosed)
}
