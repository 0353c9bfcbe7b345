package stub

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/newsguard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// fixedClock returns a clock that advances one second per call
func fixedClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func TestStore_InsertAndHistory(t *testing.T) {
	store := newTestStore(t)
	store.now = fixedClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first, err := store.Insert(ctx, "u1", "[URL] first", model.PredictionResult{
		Label: model.LabelFake, Confidence: 91.2, FakeProbability: model.Float64Ptr(0.912),
	})
	require.NoError(t, err)
	second, err := store.Insert(ctx, "u1", "second", model.PredictionResult{
		Label: model.LabelReal, Confidence: 60, Summary: model.StringPtr("looks fine"),
	})
	require.NoError(t, err)
	_, err = store.Insert(ctx, "u2", "someone else", model.PredictionResult{Label: model.LabelReal, Confidence: 50})
	require.NoError(t, err)

	entries, err := store.History(ctx, "u1", 50)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)

	assert.Equal(t, "second", entries[0].Text)
	assert.Nil(t, entries[0].FakeProbability)
	require.NotNil(t, entries[0].Summary)
	assert.Equal(t, "looks fine", *entries[0].Summary)

	assert.Equal(t, model.LabelFake, entries[1].Label)
	require.NotNil(t, entries[1].FakeProbability)
	assert.InDelta(t, 0.912, *entries[1].FakeProbability, 1e-9)
	assert.Nil(t, entries[1].Summary)
	assert.True(t, entries[1].CreatedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestStore_HistoryUnknownUserIsEmpty(t *testing.T) {
	store := newTestStore(t)

	entries, err := store.History(context.Background(), "nobody", 50)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestStore_HistoryLimit(t *testing.T) {
	store := newTestStore(t)
	store.now = fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Insert(ctx, "u1", "scan", model.PredictionResult{Label: model.LabelReal, Confidence: 50})
		require.NoError(t, err)
	}

	entries, err := store.History(ctx, "u1", 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestStore_SameTimestampNewestFirst(t *testing.T) {
	store := newTestStore(t)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return at }
	ctx := context.Background()

	a, err := store.Insert(ctx, "u1", "a", model.PredictionResult{Label: model.LabelReal, Confidence: 50})
	require.NoError(t, err)
	b, err := store.Insert(ctx, "u1", "b", model.PredictionResult{Label: model.LabelReal, Confidence: 50})
	require.NoError(t, err)

	entries, err := store.History(ctx, "u1", 50)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, b.ID, entries[0].ID)
	assert.Equal(t, a.ID, entries[1].ID)
}

func TestStore_Count(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = store.Insert(ctx, "u1", "x", model.PredictionResult{Label: model.LabelFake, Confidence: 70})
	require.NoError(t, err)
	_, err = store.Insert(ctx, "u2", "y", model.PredictionResult{Label: model.LabelReal, Confidence: 70})
	require.NoError(t, err)

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scans.db")
	ctx := context.Background()

	store, err := OpenStore(path)
	require.NoError(t, err)
	_, err = store.Insert(ctx, "u1", "kept", model.PredictionResult{Label: model.LabelReal, Confidence: 80})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	entries, err := reopened.History(ctx, "u1", 50)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Text)
}
