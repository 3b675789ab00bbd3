// Package submission turns a player's self-reported portfolio value into a
// stored record, inserting on the first submission for a name and updating after.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mcoot/portfolio-leaderboard/internal/dependencies/clock"
	"github.com/mcoot/portfolio-leaderboard/internal/metrics"
	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/storage"
)

var (
	// ErrInvalidValue means the value is not a finite, non-negative number
	ErrInvalidValue = errors.New("invalid portfolio value")
	// ErrWriteFailed wraps any store failure while saving a submission
	ErrWriteFailed = errors.New("failed to save portfolio")
	// ErrSubmissionInProgress means a write for the same name has not finished yet
	ErrSubmissionInProgress = errors.New("submission already in progress")
)

// Outcome describes what a submission did
type Outcome string

const (
	OutcomeIgnored Outcome = "ignored"
	OutcomeAdded   Outcome = "added"
	OutcomeUpdated Outcome = "updated"
)

// Result is the outcome of a successful submission.
// Player is nil when the submission was ignored.
type Result struct {
	Outcome Outcome
	Player  *model.Player
}

// Service handles portfolio submissions
type Service struct {
	store   storage.Store
	clock   clock.Clock
	metrics metrics.Recorder
	logger  *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates a new submission service
func New(store storage.Store, clk clock.Clock, m metrics.Recorder, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		clock:    clk,
		metrics:  m,
		logger:   logger.With(slog.String("component", "submission")),
		inFlight: make(map[string]struct{}),
	}
}

// Exponent bounds of a finite, non-zero float64
const (
	maxExponent = 308
	minExponent = -324
)

// ParseValue parses a portfolio value, accepting any finite non-negative decimal
func ParseValue(raw string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, raw)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidValue, raw)
	}
	// Float64 expands the exponent into a big.Rat, so bound it first
	if exp := d.Exponent(); exp > maxExponent || exp < minExponent {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidValue, raw)
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidValue, raw)
	}
	return f, nil
}

// Submit records a portfolio value for a name.
// Empty fields are ignored without error; invalid values never reach the store.
func (s *Service) Submit(ctx context.Context, name, value string) (*Result, error) {
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if name == "" || value == "" {
		s.metrics.IncSubmissions(string(OutcomeIgnored))
		return &Result{Outcome: OutcomeIgnored}, nil
	}

	parsed, err := ParseValue(value)
	if err != nil {
		s.metrics.IncSubmissions("invalid")
		s.logger.Info("rejected submission",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if !s.begin(name) {
		s.metrics.IncSubmissions("in_progress")
		return nil, ErrSubmissionInProgress
	}
	defer s.end(name)

	now := s.clock.Now()

	_, err = s.store.GetPlayerByName(ctx, name)
	switch {
	case err == nil:
		player, err := s.store.UpdatePlayerByName(ctx, name, parsed, now)
		if err != nil {
			return nil, s.fail("update", name, err)
		}
		s.metrics.IncSubmissions(string(OutcomeUpdated))
		s.logger.Info("portfolio updated",
			slog.String("player_id", string(player.ID)),
			slog.String("name", name),
			slog.Float64("value", parsed),
		)
		return &Result{Outcome: OutcomeUpdated, Player: player}, nil

	case errors.Is(err, model.ErrPlayerNotFound):
		player, err := s.store.InsertPlayer(ctx, name, parsed, now)
		if err != nil {
			return nil, s.fail("insert", name, err)
		}
		s.metrics.IncSubmissions(string(OutcomeAdded))
		s.logger.Info("player added",
			slog.String("player_id", string(player.ID)),
			slog.String("name", name),
			slog.Float64("value", parsed),
		)
		return &Result{Outcome: OutcomeAdded, Player: player}, nil

	default:
		return nil, s.fail("lookup", name, err)
	}
}

// InFlight reports whether a submission for the name is currently being written
func (s *Service) InFlight(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[strings.TrimSpace(name)]
	return ok
}

func (s *Service) fail(op, name string, err error) error {
	s.metrics.IncSubmissions("failed")
	s.logger.Error("failed to save submission",
		slog.String("op", op),
		slog.String("name", name),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%w: %s: %w", ErrWriteFailed, op, err)
}

func (s *Service) begin(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[name]; busy {
		return false
	}
	s.inFlight[name] = struct{}{}
	return true
}

func (s *Service) end(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, name)
}
