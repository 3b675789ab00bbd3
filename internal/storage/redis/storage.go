package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/portfolio-leaderboard/internal/dependencies/ids"
	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/storage"
)

// ErrTxConflict is returned when an optimistic transaction keeps losing to concurrent writers
var ErrTxConflict = errors.New("redis: transaction conflict")

// Storage is a Redis-backed implementation of the storage interface.
//
// Layout:
//   - pfboard:player:{id}          JSON player record
//   - pfboard:idx:name:{name}      player ID, claimed with SETNX
//   - pfboard:idx:current_value    sorted set of player IDs scored by current value
//
// Every successful write publishes a notification on pfboard:changes:players.
type Storage struct {
	client *redis.Client
	cfg    Config
	ids    ids.Generator
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[*storage.ChanSubscription]struct{}
	closed bool
}

// New creates a new Redis storage instance
func New(cfg Config, idGen ids.Generator, logger *slog.Logger) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg, idGen, logger), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config, idGen ids.Generator, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		client: client,
		cfg:    cfg,
		ids:    idGen,
		logger: logger,
		subs:   make(map[*storage.ChanSubscription]struct{}),
	}
}

// Close ends open subscriptions and closes the Redis connection
func (s *Storage) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := make([]*storage.ChanSubscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = make(map[*storage.ChanSubscription]struct{})
	s.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	return s.client.Close()
}

// Ping checks the connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

// Reads

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	idList, err := s.client.ZRevRange(ctx, valueIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, s.mapErr(err)
	}
	if len(idList) == 0 {
		return []*model.Player{}, nil
	}

	keys := make([]string, len(idList))
	for i, id := range idList {
		keys[i] = playerKey(model.PlayerID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, s.mapErr(err)
	}

	players := make([]*model.Player, 0, len(values))
	for _, v := range values {
		// Deleted between ZREVRANGE and MGET
		if v == nil {
			continue
		}
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var p model.Player
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, err
		}
		players = append(players, &p)
	}
	return players, nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return s.readPlayer(ctx, s.client, id)
}

func (s *Storage) GetPlayerByName(ctx context.Context, name string) (*model.Player, error) {
	id, err := s.client.Get(ctx, nameIndexKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, s.mapErr(err)
	}
	return s.readPlayer(ctx, s.client, model.PlayerID(id))
}

// Writes

func (s *Storage) InsertPlayer(ctx context.Context, name string, value float64, at time.Time) (*model.Player, error) {
	if s.isClosed() {
		return nil, model.ErrStoreClosed
	}

	p := model.NewPlayer(s.ids.NewPlayerID(), name, value, at)
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	claimed, err := s.client.SetNX(ctx, nameIndexKey(name), string(p.ID), 0).Result()
	if err != nil {
		return nil, s.mapErr(err)
	}
	if !claimed {
		return nil, model.ErrNameTaken
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, playerKey(p.ID), data, 0)
		pipe.ZAdd(ctx, valueIndexKey(), redis.Z{Score: value, Member: string(p.ID)})
		return nil
	})
	if err != nil {
		// Release the name so a retry can claim it
		_ = s.client.Del(context.WithoutCancel(ctx), nameIndexKey(name)).Err()
		return nil, s.mapErr(err)
	}

	s.publish(ctx, model.NewChangeEvent(model.ChangeInsert, p.ID, at))
	return p, nil
}

func (s *Storage) UpdatePlayerByName(ctx context.Context, name string, value float64, at time.Time) (*model.Player, error) {
	if s.isClosed() {
		return nil, model.ErrStoreClosed
	}

	var updated *model.Player
	err := s.watch(ctx, func(tx *redis.Tx) error {
		id, err := tx.Get(ctx, nameIndexKey(name)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrPlayerNotFound
			}
			return err
		}
		pid := model.PlayerID(id)
		if err := tx.Watch(ctx, playerKey(pid)).Err(); err != nil {
			return err
		}

		p, err := s.readPlayer(ctx, tx, pid)
		if err != nil {
			return err
		}
		p.Revalue(value, at)

		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, playerKey(pid), data, 0)
			pipe.ZAdd(ctx, valueIndexKey(), redis.Z{Score: value, Member: id})
			return nil
		})
		if err != nil {
			return err
		}
		updated = p
		return nil
	}, nameIndexKey(name))
	if err != nil {
		return nil, s.mapErr(err)
	}

	s.publish(ctx, model.NewChangeEvent(model.ChangeUpdate, updated.ID, at))
	return updated, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID, at time.Time) (*model.Player, error) {
	if s.isClosed() {
		return nil, model.ErrStoreClosed
	}

	var deleted *model.Player
	err := s.watch(ctx, func(tx *redis.Tx) error {
		p, err := s.readPlayer(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := tx.Watch(ctx, nameIndexKey(p.Name)).Err(); err != nil {
			return err
		}
		owner, err := tx.Get(ctx, nameIndexKey(p.Name)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, playerKey(id))
			pipe.ZRem(ctx, valueIndexKey(), string(id))
			if owner == string(id) {
				pipe.Del(ctx, nameIndexKey(p.Name))
			}
			return nil
		})
		if err != nil {
			return err
		}
		deleted = p
		return nil
	}, playerKey(id))
	if err != nil {
		return nil, s.mapErr(err)
	}

	s.publish(ctx, model.NewChangeEvent(model.ChangeDelete, id, at))
	return deleted, nil
}

// Notifications

func (s *Storage) Subscribe(ctx context.Context) (storage.Subscription, error) {
	if s.isClosed() {
		return nil, model.ErrStoreClosed
	}

	pubsub := s.client.Subscribe(ctx, changesChannel(model.PlayersTable))
	// Wait for the subscription to be confirmed so no later write is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, s.mapErr(err)
	}

	var sub *storage.ChanSubscription
	sub = storage.NewChanSubscription(s.cfg.SubscriptionBuffer, func() error {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		return pubsub.Close()
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = pubsub.Close()
		return nil, model.ErrStoreClosed
	}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	messages := pubsub.Channel()
	go func() {
		defer func() { _ = sub.Close() }()
		for msg := range messages {
			_, ev, err := storage.DecodeNotification([]byte(msg.Payload))
			if err != nil {
				s.logger.Warn("dropping malformed notification",
					slog.String("channel", msg.Channel),
					slog.String("error", err.Error()),
				)
				continue
			}
			sub.Deliver(ev)
		}
	}()
	sub.CloseOnDone(ctx)

	return sub, nil
}

func (s *Storage) publish(ctx context.Context, ev model.ChangeEvent) {
	payload, err := storage.EncodeNotification(ev)
	if err != nil {
		s.logger.Error("failed to encode notification", slog.String("error", err.Error()))
		return
	}
	// The write already happened; a lost notification is logged, not returned
	if err := s.client.Publish(context.WithoutCancel(ctx), changesChannel(ev.Table), payload).Err(); err != nil {
		s.logger.Error("failed to publish notification",
			slog.String("type", string(ev.Type)),
			slog.String("player_id", string(ev.PlayerID)),
			slog.String("error", err.Error()),
		)
	}
}

// Helpers

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Storage) readPlayer(ctx context.Context, c getter, id model.PlayerID) (*model.Player, error) {
	data, err := c.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, s.mapErr(err)
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

// watch runs fn in an optimistic transaction, retrying when a watched key changes
func (s *Storage) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	attempts := max(s.cfg.MaxTxAttempts, 1)
	for range attempts {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return ErrTxConflict
}

func (s *Storage) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Storage) mapErr(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return model.ErrStoreClosed
	}
	return err
}
