package postgres

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/portfolio-leaderboard/internal/testutil"
)

func TestMigrator(t *testing.T) {
	url := testDatabaseURL(t)

	t.Run("migrate up and down", func(t *testing.T) {
		ctx := t.Context()
		schemaName := "pfboard_migrate_up_down"

		db, err := Connect(url)
		require.NoError(t, err)
		defer db.Close()

		db.MustExec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(schemaName)))

		migrator := NewMigrator(db, testutil.NopLogger())

		require.NoError(t, migrator.Migrate(ctx, schemaName), "error migrating up")
		// Running again is a no-op
		require.NoError(t, migrator.Migrate(ctx, schemaName), "error re-running migrations")

		var count int
		require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1 AND table_name = 'players'`, schemaName))
		require.Equal(t, 1, count)

		require.NoError(t, migrator.Rollback(ctx, schemaName), "error migrating down")

		require.NoError(t, db.GetContext(ctx, &count, `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1 AND table_name = 'players'`, schemaName))
		require.Equal(t, 0, count)
	})
}
