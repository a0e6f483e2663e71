package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	data, err := fs.ReadFile(migrations, files[0])
	require.NoError(t, err)

	schema := string(data)
	require.Contains(t, schema, "-- +goose Up")
	require.Contains(t, schema, "-- +goose Down")

	// Tables the ledger writes to within one transaction.
	for _, table := range []string{"users", "checkins", "user_quests", "user_quest_steps", "point_transactions"} {
		require.True(t, strings.Contains(schema, "CREATE TABLE "+table+" ("), table)
	}
}
