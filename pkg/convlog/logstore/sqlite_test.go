package logstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/convlog/pkg/convlog/logstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "logs.db")
	ctx := context.Background()

	store1, err := logstore.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store1.Append(ctx, "conv1", "persistent"))
	require.NoError(t, store1.Close())

	store2, err := logstore.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	require.NoError(t, store2.Append(ctx, "conv1", "after reopen"))

	lines, err := store2.Lines(ctx, "conv1")
	require.NoError(t, err)
	assert.Equal(t, []string{"persistent", "after reopen"}, lines)
}

func TestSQLiteStore_InMemory(t *testing.T) {
	store, err := logstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "conv1", "a"))
	lines, err := store.Lines(ctx, "conv1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, lines)
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := logstore.NewSQLiteStore("/nonexistent/path/logs.db")
	assert.Error(t, err)
}
