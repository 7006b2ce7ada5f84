package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	database, err := Connect(DriverSQLite, SQLitePath(t.TempDir()))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, Migrate(ctx, database))
	require.NoError(t, Migrate(ctx, database))

	version, err := SchemaVersion(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)

	for _, table := range []string{"chats", "messages"} {
		var count int
		require.NoError(t, database.Get(&count, "SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name = ?", table))
		assert.Equal(t, 1, count, table)
	}
	for _, index := range []string{"idx_chats_created_at", "idx_messages_chat_sent_at"} {
		var count int
		require.NoError(t, database.Get(&count, "SELECT COUNT(1) FROM sqlite_master WHERE type='index' AND name = ?", index))
		assert.Equal(t, 1, count, index)
	}
}

func TestConnectEnablesWAL(t *testing.T) {
	database, err := Connect(DriverSQLite, SQLitePath(t.TempDir()))
	require.NoError(t, err)
	defer database.Close()

	var mode string
	require.NoError(t, database.Get(&mode, "PRAGMA journal_mode;"))
	assert.Equal(t, "wal", mode)
}
