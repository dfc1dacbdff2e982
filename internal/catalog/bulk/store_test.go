package bulk_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medialib-dev/medialib/internal/catalog/bulk"
)

func TestStorePutRejectsDuplicateKey(t *testing.T) {
	store := bulk.NewStore(time.Minute)
	defer store.Close()

	require.NoError(t, store.Put("key-1", bulk.JobState{Total: 3, Status: bulk.StatusPending}))

	err := store.Put("key-1", bulk.JobState{Total: 5, Status: bulk.StatusPending})
	assert.ErrorIs(t, err, bulk.ErrKeyExists)

	// The original entry is untouched
	state, ok := store.Get("key-1")
	require.True(t, ok)
	assert.Equal(t, 3, state.Total)
}

func TestStoreGetUnknownKey(t *testing.T) {
	store := bulk.NewStore(time.Minute)
	defer store.Close()

	_, ok := store.Get("never-issued")
	assert.False(t, ok)
}

func TestStoreUpdateUnknownKey(t *testing.T) {
	store := bulk.NewStore(time.Minute)
	defer store.Close()

	err := store.Update("never-issued", func(s *bulk.JobState) { s.Processed++ })
	assert.ErrorIs(t, err, bulk.ErrNotFound)
}

func TestStoreGetReturnsSnapshot(t *testing.T) {
	store := bulk.NewStore(time.Minute)
	defer store.Close()

	require.NoError(t, store.Put("key-1", bulk.JobState{
		Total:  2,
		Status: bulk.StatusProcessing,
		Errors: []bulk.ItemError{{ID: 1, Error: "boom"}},
	}))

	snapshot, ok := store.Get("key-1")
	require.True(t, ok)

	// Mutating the snapshot must not leak into the store
	snapshot.Processed = 99
	snapshot.Errors[0].Error = "tampered"

	fresh, ok := store.Get("key-1")
	require.True(t, ok)
	assert.Equal(t, 0, fresh.Processed)
	assert.Equal(t, "boom", fresh.Errors[0].Error)
}

func TestStoreSweep(t *testing.T) {
	store := bulk.NewStore(10 * time.Minute)
	defer store.Close()

	// Completed long ago: swept
	require.NoError(t, store.Put("expired", bulk.JobState{
		Status:      bulk.StatusCompleted,
		CompletedAt: time.Now().UTC().Add(-time.Hour),
	}))
	// Completed just now: kept
	require.NoError(t, store.Put("recent", bulk.JobState{
		Status:      bulk.StatusCompleted,
		CompletedAt: time.Now().UTC(),
	}))
	// Still in flight: kept no matter how old
	require.NoError(t, store.Put("running", bulk.JobState{
		Status:    bulk.StatusProcessing,
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}))

	store.Sweep()

	_, ok := store.Get("expired")
	assert.False(t, ok)
	_, ok = store.Get("recent")
	assert.True(t, ok)
	_, ok = store.Get("running")
	assert.True(t, ok)
	assert.Equal(t, 2, store.Len())
}
