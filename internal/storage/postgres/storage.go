package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mcoot/portfolio-leaderboard/internal/dependencies/ids"
	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/storage"
)

// NotifyChannel is the channel the players trigger notifies on
const NotifyChannel = "pfboard_players_changes"

const uniqueViolation = "23505"

// Storage is a Postgres-backed implementation of the storage interface.
// IDs are assigned by the database; change notifications come from a trigger
// and are relayed to subscribers through a single shared pq.Listener.
type Storage struct {
	db      *sqlx.DB
	cfg     Config
	logger  *slog.Logger
	players string // schema-qualified, quoted table name

	mu       sync.Mutex
	listener *pq.Listener
	fanout   *storage.Fanout
	relayWG  sync.WaitGroup
	closed   bool
}

type dbPlayer struct {
	ID            string          `db:"id"`
	Name          string          `db:"name"`
	CurrentValue  float64         `db:"current_value"`
	PreviousValue sql.NullFloat64 `db:"previous_value"`
	LastUpdated   time.Time       `db:"last_updated"`
}

func (r dbPlayer) toModel() *model.Player {
	p := &model.Player{
		ID:           model.PlayerID(r.ID),
		Name:         r.Name,
		CurrentValue: r.CurrentValue,
		LastUpdated:  r.LastUpdated.UTC(),
	}
	if r.PreviousValue.Valid {
		prev := r.PreviousValue.Float64
		p.PreviousValue = &prev
	}
	return p
}

const playerColumns = "id, name, current_value, previous_value, last_updated"

// New connects, applies migrations and returns a ready store
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	db, err := Connect(cfg.URL)
	if err != nil {
		return nil, err
	}

	if err := NewMigrator(db, logger).Migrate(ctx, cfg.Schema); err != nil {
		db.Close()
		return nil, err
	}

	return NewWithDB(db, cfg, logger), nil
}

// NewWithDB creates a store on an already migrated database
func NewWithDB(db *sqlx.DB, cfg Config, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		db:      db,
		cfg:     cfg,
		logger:  logger,
		players: fmt.Sprintf("%s.%s", pq.QuoteIdentifier(cfg.Schema), pq.QuoteIdentifier(model.PlayersTable)),
		fanout:  storage.NewFanout(),
	}
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

// Ping checks the connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Reads

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	var rows []dbPlayer
	err := s.db.SelectContext(ctx, &rows, fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY current_value DESC, name ASC`, playerColumns, s.players,
	))
	if err != nil {
		return nil, s.mapErr(fmt.Errorf("failed to list players: %w", err))
	}

	players := make([]*model.Player, len(rows))
	for i, r := range rows {
		players[i] = r.toModel()
	}
	return players, nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	if !ids.Valid(string(id)) {
		return nil, model.ErrPlayerNotFound
	}
	return s.getOne(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, playerColumns, s.players), string(id))
}

func (s *Storage) GetPlayerByName(ctx context.Context, name string) (*model.Player, error) {
	return s.getOne(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE name = $1`, playerColumns, s.players), name)
}

// Writes

func (s *Storage) InsertPlayer(ctx context.Context, name string, value float64, at time.Time) (*model.Player, error) {
	if s.isClosed() {
		return nil, model.ErrStoreClosed
	}
	return s.getOne(ctx, fmt.Sprintf(
		`INSERT INTO %s (name, current_value, last_updated)
		VALUES ($1, $2, $3)
		RETURNING %s`, s.players, playerColumns,
	), name, value, at)
}

func (s *Storage) UpdatePlayerByName(ctx context.Context, name string, value float64, at time.Time) (*model.Player, error) {
	if s.isClosed() {
		return nil, model.ErrStoreClosed
	}
	// Single statement, so the shift reads the current value it replaces
	return s.getOne(ctx, fmt.Sprintf(
		`UPDATE %s SET
			previous_value = current_value,
			current_value = $2,
			last_updated = $3
		WHERE name = $1
		RETURNING %s`, s.players, playerColumns,
	), name, value, at)
}

// DeletePlayer removes a player; the trigger stamps notifications with the database clock
func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID, _ time.Time) (*model.Player, error) {
	if s.isClosed() {
		return nil, model.ErrStoreClosed
	}
	if !ids.Valid(string(id)) {
		return nil, model.ErrPlayerNotFound
	}
	return s.getOne(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE id = $1 RETURNING %s`, s.players, playerColumns,
	), string(id))
}

// Close stops the listener, ends subscriptions and closes the pool
func (s *Storage) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
	}
	s.relayWG.Wait()
	s.fanout.Close()

	return s.db.Close()
}

func (s *Storage) getOne(ctx context.Context, query string, args ...any) (*model.Player, error) {
	var row dbPlayer
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, s.mapErr(err)
	}
	return row.toModel(), nil
}

func (s *Storage) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Storage) mapErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return model.ErrNameTaken
	}
	if s.isClosed() {
		return model.ErrStoreClosed
	}
	return err
}
