package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijitnavale/flatpak/pkg/history"
)

func TestRecordThenHistoryReturnsOrderedEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, "app/org.x.App/x86_64/stable", "abc123", history.EventDeployed, base))
	require.NoError(t, store.Record(ctx, "app/org.x.App/x86_64/stable", "abc123", history.EventUndeployed, base.Add(time.Hour)))

	entries, err := store.History(ctx, "app/org.x.App/x86_64/stable")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, history.EventDeployed, entries[0].Event)
	assert.Equal(t, history.EventUndeployed, entries[1].Event)
	assert.True(t, entries[1].Timestamp.After(entries[0].Timestamp))
}

func TestHistoryUnknownRefIsEmptyNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.History(context.Background(), "app/org.nobody/x86_64/stable")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDBPathIsUnderStateDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/base", "state", "history.db"), history.DBPath("/base"))
}
