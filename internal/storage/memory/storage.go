package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/portfolio-leaderboard/internal/dependencies/ids"
	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players   map[model.PlayerID]*model.Player
	nameIndex map[string]model.PlayerID

	ids    ids.Generator
	fanout *storage.Fanout
	closed bool
}

// New creates a new in-memory storage instance
func New(idGen ids.Generator) *Storage {
	return &Storage{
		players:   make(map[model.PlayerID]*model.Player),
		nameIndex: make(map[string]model.PlayerID),
		ids:       idGen,
		fanout:    storage.NewFanout(),
	}
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]*model.Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p.Clone())
	}

	sort.Slice(players, func(i, j int) bool {
		if players[i].CurrentValue != players[j].CurrentValue {
			return players[i].CurrentValue > players[j].CurrentValue
		}
		return players[i].Name < players[j].Name
	})
	return players, nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return p.Clone(), nil
}

func (s *Storage) GetPlayerByName(ctx context.Context, name string) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.nameIndex[name]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return s.players[id].Clone(), nil
}

func (s *Storage) InsertPlayer(ctx context.Context, name string, value float64, at time.Time) (*model.Player, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, model.ErrStoreClosed
	}
	if _, exists := s.nameIndex[name]; exists {
		s.mu.Unlock()
		return nil, model.ErrNameTaken
	}

	p := model.NewPlayer(s.ids.NewPlayerID(), name, value, at)
	s.players[p.ID] = p
	s.nameIndex[name] = p.ID
	result := p.Clone()
	s.mu.Unlock()

	s.fanout.Publish(model.NewChangeEvent(model.ChangeInsert, p.ID, at))
	return result, nil
}

func (s *Storage) UpdatePlayerByName(ctx context.Context, name string, value float64, at time.Time) (*model.Player, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, model.ErrStoreClosed
	}
	id, ok := s.nameIndex[name]
	if !ok {
		s.mu.Unlock()
		return nil, model.ErrPlayerNotFound
	}

	p := s.players[id]
	p.Revalue(value, at)
	result := p.Clone()
	s.mu.Unlock()

	s.fanout.Publish(model.NewChangeEvent(model.ChangeUpdate, id, at))
	return result, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID, at time.Time) (*model.Player, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, model.ErrStoreClosed
	}
	p, ok := s.players[id]
	if !ok {
		s.mu.Unlock()
		return nil, model.ErrPlayerNotFound
	}

	delete(s.players, id)
	delete(s.nameIndex, p.Name)
	s.mu.Unlock()

	s.fanout.Publish(model.NewChangeEvent(model.ChangeDelete, id, at))
	return p, nil
}

func (s *Storage) Subscribe(ctx context.Context) (storage.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, model.ErrStoreClosed
	}
	return s.fanout.Subscribe(ctx), nil
}

// Ping fails only once the store is closed
func (s *Storage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.ErrStoreClosed
	}
	return nil
}

// SubscriberCount returns the number of open subscriptions
func (s *Storage) SubscriberCount() int {
	return s.fanout.Len()
}

// Close ends all subscriptions and rejects further writes
func (s *Storage) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.fanout.Close()
	return nil
}
