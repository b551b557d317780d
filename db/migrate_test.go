package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testdb "github.com/teranos/callsheet/internal/testing"
)

func TestMigrate(t *testing.T) {
	t.Run("records every migration", func(t *testing.T) {
		db := testdb.CreateTestDB(t)
		require.NoError(t, Migrate(db, nil))

		entries, err := migrations.ReadDir(migrationsDir)
		require.NoError(t, err)

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
		assert.Equal(t, len(entries), count)
	})

	t.Run("is idempotent", func(t *testing.T) {
		db, err := Open(filepath.Join(t.TempDir(), "journal.db"), nil)
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, Migrate(db, nil))
		require.NoError(t, Migrate(db, nil), "running migrations twice should be safe")
	})

	t.Run("fails on a closed database", func(t *testing.T) {
		db, err := Open(filepath.Join(t.TempDir(), "journal.db"), nil)
		require.NoError(t, err)
		db.Close()

		err = Migrate(db, nil)
		require.Error(t, err)
		assert.True(t, IsDatabaseClosed(err))
	})
}
