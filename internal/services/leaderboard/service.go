// Package leaderboard ranks players by portfolio value and relays store
// change notifications to whoever is displaying the list.
package leaderboard

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/portfolio-leaderboard/internal/dependencies/clock"
	"github.com/mcoot/portfolio-leaderboard/internal/metrics"
	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/storage"
)

// ErrSubscriptionClosed is returned by Watch when the store ends the subscription
var ErrSubscriptionClosed = errors.New("change subscription closed")

// Entry is one ranked row of the leaderboard
type Entry struct {
	Rank   int
	Player *model.Player
	Change *Change // nil when there is no usable previous value
}

// NewEntry builds a ranked entry for a player
func NewEntry(rank int, p *model.Player) Entry {
	e := Entry{Rank: rank, Player: p}
	if c, ok := PercentChange(p.CurrentValue, p.PreviousValue); ok {
		e.Change = &c
	}
	return e
}

// Badge returns the rank badge style
func (e Entry) Badge() string {
	return RankBadge(e.Rank)
}

// Value returns the formatted current value
func (e Entry) Value() string {
	return FormatCurrency(e.Player.CurrentValue)
}

// Updated returns the formatted last-updated date
func (e Entry) Updated() string {
	return FormatDate(e.Player.LastUpdated)
}

// Service reads, deletes and watches leaderboard records
type Service struct {
	store   storage.Store
	clock   clock.Clock
	metrics metrics.Recorder
	logger  *slog.Logger
}

// New creates a new leaderboard service
func New(store storage.Store, clk clock.Clock, m metrics.Recorder, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		clock:   clk,
		metrics: m,
		logger:  logger.With(slog.String("component", "leaderboard")),
	}
}

// List returns every player ranked by current value, highest first
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		s.logger.Error("failed to load leaderboard", slog.String("error", err.Error()))
		return nil, err
	}

	entries := make([]Entry, len(players))
	for i, p := range players {
		entries[i] = NewEntry(i+1, p)
	}
	return entries, nil
}

// Get returns a single player
func (s *Service) Get(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return s.store.GetPlayer(ctx, id)
}

// Delete removes a player by ID and returns the removed record
func (s *Service) Delete(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	p, err := s.store.DeletePlayer(ctx, id, s.clock.Now())
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			s.metrics.IncDeletions("not_found")
			s.logger.Info("delete of unknown player", slog.String("player_id", string(id)))
		} else {
			s.metrics.IncDeletions("failed")
			s.logger.Error("failed to delete player",
				slog.String("player_id", string(id)),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	s.metrics.IncDeletions("deleted")
	s.logger.Info("player deleted",
		slog.String("player_id", string(p.ID)),
		slog.String("name", p.Name),
	)
	return p, nil
}

// Watch calls fn for every change notification until ctx ends.
// The subscription is released before Watch returns.
func (s *Service) Watch(ctx context.Context, fn func(model.ChangeEvent)) error {
	sub, err := s.store.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	s.logger.Info("watching for player changes")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrSubscriptionClosed
			}
			s.metrics.IncNotifications(string(ev.Type))
			s.logger.Debug("player change",
				slog.String("type", string(ev.Type)),
				slog.String("player_id", string(ev.PlayerID)),
			)
			fn(ev)
		}
	}
}
