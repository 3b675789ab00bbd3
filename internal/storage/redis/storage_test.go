package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/portfolio-leaderboard/internal/dependencies/mocks"
	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/storage"
	"github.com/mcoot/portfolio-leaderboard/internal/storage/storagetest"
	"github.com/mcoot/portfolio-leaderboard/internal/testutil"
)

type StorageSuite struct {
	storagetest.StoreSuite
	mini    *miniredis.Miniredis
	storage *Storage
	ids     *mocks.MockIDs
}

func TestStorageSuite(t *testing.T) {
	s := new(StorageSuite)
	s.NewStore = func() storage.Store {
		s.mini = miniredis.RunT(s.T())

		client := redis.NewClient(&redis.Options{
			Addr: s.mini.Addr(),
		})

		s.ids = mocks.NewMockIDs()
		s.storage = NewWithClient(client, DefaultConfig(), s.ids, testutil.NopLogger())
		return s.storage
	}
	suite.Run(t, s)
}

func (s *StorageSuite) TestKeyLayout() {
	s.ids.Queue("alice-id")
	_, err := s.storage.InsertPlayer(s.Ctx, "Alice", 100, s.Now)
	s.Require().NoError(err)

	s.True(s.mini.Exists("pfboard:player:alice-id"))

	owner, err := s.mini.Get("pfboard:idx:name:Alice")
	s.Require().NoError(err)
	s.Equal("alice-id", owner)

	members, err := s.mini.ZMembers("pfboard:idx:current_value")
	s.Require().NoError(err)
	s.Equal([]string{"alice-id"}, members)

	score, err := s.mini.ZScore("pfboard:idx:current_value", "alice-id")
	s.Require().NoError(err)
	s.Equal(100.0, score)
}

func (s *StorageSuite) TestUpdateMovesScore() {
	s.ids.Queue("alice-id")
	_, err := s.storage.InsertPlayer(s.Ctx, "Alice", 100, s.Now)
	s.Require().NoError(err)

	_, err = s.storage.UpdatePlayerByName(s.Ctx, "Alice", 250, s.Now)
	s.Require().NoError(err)

	score, err := s.mini.ZScore("pfboard:idx:current_value", "alice-id")
	s.Require().NoError(err)
	s.Equal(250.0, score)
}

func (s *StorageSuite) TestDeleteRemovesAllKeys() {
	s.ids.Queue("alice-id")
	_, err := s.storage.InsertPlayer(s.Ctx, "Alice", 100, s.Now)
	s.Require().NoError(err)

	_, err = s.storage.DeletePlayer(s.Ctx, "alice-id", s.Now)
	s.Require().NoError(err)

	s.False(s.mini.Exists("pfboard:player:alice-id"))
	s.False(s.mini.Exists("pfboard:idx:name:Alice"))
	members, _ := s.mini.ZMembers("pfboard:idx:current_value")
	s.Empty(members)
}

func (s *StorageSuite) TestListSkipsDanglingIndexEntries() {
	_, err := s.storage.InsertPlayer(s.Ctx, "Alice", 100, s.Now)
	s.Require().NoError(err)
	_, err = s.mini.ZAdd("pfboard:idx:current_value", 500, "ghost")
	s.Require().NoError(err)

	players, err := s.storage.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(players, 1)
	s.Equal("Alice", players[0].Name)
}

func (s *StorageSuite) TestWritesPublishJSONNotifications() {
	s.ids.Queue("alice-id")

	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	defer client.Close()
	pubsub := client.Subscribe(s.Ctx, "pfboard:changes:players")
	defer pubsub.Close()
	_, err := pubsub.Receive(s.Ctx)
	s.Require().NoError(err)

	_, err = s.storage.InsertPlayer(s.Ctx, "Alice", 100, s.Now)
	s.Require().NoError(err)

	select {
	case msg := <-pubsub.Channel():
		var n storage.Notification
		s.Require().NoError(json.Unmarshal([]byte(msg.Payload), &n))
		s.Equal("insert", n.Type)
		s.Equal("players", n.Table)
		s.Equal("alice-id", n.PlayerID)
	case <-time.After(5 * time.Second):
		s.FailNow("no message published")
	}
}

func (s *StorageSuite) TestDeleteNotificationUsesWriterTime() {
	s.ids.Queue("alice-id")
	_, err := s.storage.InsertPlayer(s.Ctx, "Alice", 100, s.Now)
	s.Require().NoError(err)

	sub, err := s.storage.Subscribe(s.Ctx)
	s.Require().NoError(err)
	defer sub.Close()

	at := s.Now.Add(48 * time.Hour)
	_, err = s.storage.DeletePlayer(s.Ctx, "alice-id", at)
	s.Require().NoError(err)

	select {
	case ev := <-sub.Events():
		s.Equal(model.ChangeDelete, ev.Type)
		s.True(at.Equal(ev.Timestamp), "got %s", ev.Timestamp)
	case <-time.After(5 * time.Second):
		s.FailNow("delete notification not delivered")
	}
}

func (s *StorageSuite) TestMalformedNotificationsAreDropped() {
	sub, err := s.storage.Subscribe(s.Ctx)
	s.Require().NoError(err)
	defer sub.Close()

	s.mini.Publish("pfboard:changes:players", "not json")
	s.mini.Publish("pfboard:changes:players", `{"type":"update","table":"players","player_id":"p1"}`)

	select {
	case ev := <-sub.Events():
		s.Equal(model.ChangeUpdate, ev.Type)
		s.Equal(model.PlayerID("p1"), ev.PlayerID)
	case <-time.After(5 * time.Second):
		s.FailNow("valid notification not delivered")
	}
}

func (s *StorageSuite) TestCloseEndsSubscriptions() {
	sub, err := s.storage.Subscribe(s.Ctx)
	s.Require().NoError(err)

	s.Require().NoError(s.storage.Close())

	select {
	case _, ok := <-sub.Events():
		s.False(ok)
	case <-time.After(5 * time.Second):
		s.FailNow("subscription not closed with storage")
	}

	_, err = s.storage.InsertPlayer(s.Ctx, "Alice", 1, s.Now)
	s.ErrorIs(err, model.ErrStoreClosed)
	_, err = s.storage.Subscribe(s.Ctx)
	s.ErrorIs(err, model.ErrStoreClosed)
}

func (s *StorageSuite) TestSubscriptionClosesWithContext() {
	ctx, cancel := context.WithCancel(s.Ctx)
	sub, err := s.storage.Subscribe(ctx)
	s.Require().NoError(err)
	cancel()

	s.Eventually(func() bool {
		select {
		case _, ok := <-sub.Events():
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func (s *StorageSuite) TestNewRejectsBadURL() {
	cfg := DefaultConfig()
	cfg.URL = "not-a-url"
	_, err := New(cfg, s.ids, testutil.NopLogger())
	s.Error(err)
}

func (s *StorageSuite) TestNewConnects() {
	cfg := DefaultConfig()
	cfg.URL = "redis://" + s.mini.Addr()
	st, err := New(cfg, s.ids, testutil.NopLogger())
	s.Require().NoError(err)
	defer st.Close()

	s.NoError(st.Ping(s.Ctx))
}
