package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrator applies the embedded schema migrations
type Migrator struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewMigrator creates a migrator for the given database
func NewMigrator(db *sqlx.DB, logger *slog.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the schema if needed and runs all pending up migrations
func (m *Migrator) Migrate(ctx context.Context, schemaName string) error {
	instance, closeFn, err := m.instance(ctx, schemaName)
	if err != nil {
		return err
	}
	defer closeFn()

	m.logger.InfoContext(ctx, "Starting migrations...", slog.String("schema", schemaName))
	if err := instance.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.InfoContext(ctx, "No migrations to run.")
		} else {
			return fmt.Errorf("migrate: failed to migrate: %w", err)
		}
	}
	m.logger.InfoContext(ctx, "Migrations completed successfully.")

	return nil
}

// Rollback runs every down migration for the schema
func (m *Migrator) Rollback(ctx context.Context, schemaName string) error {
	instance, closeFn, err := m.instance(ctx, schemaName)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := instance.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: failed to roll back: %w", err)
	}
	return nil
}

func (m *Migrator) instance(ctx context.Context, schemaName string) (*migrate.Migrate, func(), error) {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("migrate: failed to connect to db: %w", err)
	}

	_, err = conn.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pq.QuoteIdentifier(schemaName)))
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("migrate: failed to create schema: %w", err)
	}

	_, err = conn.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(schemaName)))
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("migrate: failed to set search path: %w", err)
	}

	migrationSource, err := iofs.New(embeddedMigrations, "migrations")
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("migrate: failed to create driver from embedded migrations: %w", err)
	}

	dbDriver, err := migratepg.WithConnection(ctx, conn, &migratepg.Config{
		SchemaName: schemaName,
	})
	if err != nil {
		migrationSource.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("migrate: failed to create postgres driver: %w", err)
	}

	instance, err := migrate.NewWithInstance("iofs", migrationSource, "postgres", dbDriver)
	if err != nil {
		migrationSource.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("migrate: failed to create migration instance: %w", err)
	}

	// Closing the instance closes both the source and the driver's connection
	return instance, func() { instance.Close() }, nil
}
