package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mobile-next/edgenav/gesture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func resolution(id string, outcome gesture.Outcome) gesture.Resolution {
	return gesture.Resolution{
		SessionID:  id,
		Outcome:    outcome,
		EdgeName:   "bottom",
		DownTimeMs: 1000,
		ResolvedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "emulator-5554", resolution("s1", gesture.OutcomeBack)))
	require.NoError(t, store.Record(ctx, "emulator-5554", resolution("s2", gesture.OutcomeHome)))
	require.NoError(t, store.Record(ctx, "R58M123ABC", resolution("s3", gesture.OutcomeRecents)))

	entries, err := store.Recent(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "s3", entries[0].SessionID, "newest first")
	assert.Equal(t, gesture.OutcomeRecents, entries[0].Outcome)
	assert.Equal(t, "bottom", entries[0].Edge)
	assert.Equal(t, store.RunID(), entries[0].RunID)
	assert.True(t, entries[0].ResolvedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))

	entries, err = store.Recent(ctx, Query{DeviceID: "emulator-5554"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = store.Recent(ctx, Query{Outcome: gesture.OutcomeHome})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "s2", entries[0].SessionID)

	entries, err = store.Recent(ctx, Query{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_Counts(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()

	for _, o := range []gesture.Outcome{gesture.OutcomeBack, gesture.OutcomeBack, gesture.OutcomeLastApp} {
		require.NoError(t, store.Record(ctx, "emulator-5554", resolution("s", o)))
	}
	require.NoError(t, store.Record(ctx, "other", resolution("s", gesture.OutcomeHome)))

	counts, err := store.Counts(ctx, "emulator-5554")
	require.NoError(t, err)
	assert.Equal(t, map[gesture.Outcome]int{gesture.OutcomeBack: 2, gesture.OutcomeLastApp: 1}, counts)

	counts, err = store.Counts(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[gesture.OutcomeHome])
}

func TestStore_ReopenKeepsRowsWithNewRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Record(ctx, "dev", resolution("s1", gesture.OutcomeBack)))
	firstRun := first.RunID()
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
	assert.NotEqual(t, firstRun, second.RunID())

	entries, err := second.Recent(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, firstRun, entries[0].RunID)
}

func TestStore_InMemory(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Record(context.Background(), "dev", gesture.Resolution{SessionID: "x", Outcome: gesture.OutcomeHome}))
	entries, err := store.Recent(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].ResolvedAt.IsZero())
}
