package bulk_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medialib-dev/medialib/internal/catalog/bulk"
)

func newTestCoordinator(t *testing.T, exec bulk.Executor, opts bulk.Options) *bulk.Coordinator {
	t.Helper()

	store := bulk.NewStore(time.Minute)
	t.Cleanup(store.Close)

	registry := bulk.NewRegistry()
	for _, contentType := range []bulk.ContentType{bulk.ContentTypeMovie, bulk.ContentTypeSeries} {
		for _, action := range []bulk.Action{
			bulk.ActionChangeStatus,
			bulk.ActionToggleFeatured,
			bulk.ActionRefreshMetadata,
			bulk.ActionDelete,
		} {
			registry.Register(contentType, action, exec)
		}
	}

	opts.Logger = zerolog.Nop()
	return bulk.NewCoordinator(store, registry, opts)
}

func noopExecutor() bulk.Executor {
	return bulk.ExecutorFunc(func(ctx context.Context, item bulk.Item) error {
		return nil
	})
}

func deleteRequest(ids ...int64) bulk.Request {
	return bulk.Request{
		ContentType: bulk.ContentTypeMovie,
		Action:      bulk.ActionDelete,
		IDs:         ids,
		Params:      bulk.Params{Confirmed: true},
	}
}

func waitForCompleted(t *testing.T, store *bulk.Store, key bulk.Key) bulk.JobState {
	t.Helper()

	var state bulk.JobState
	require.Eventually(t, func() bool {
		var ok bool
		state, ok = store.Get(key)
		return ok && state.Status == bulk.StatusCompleted
	}, 5*time.Second, 5*time.Millisecond, "batch never completed")
	return state
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name string
		req  bulk.Request
	}{
		{
			name: "empty ids",
			req: bulk.Request{
				ContentType: bulk.ContentTypeMovie,
				Action:      bulk.ActionToggleFeatured,
			},
		},
		{
			name: "unknown content type",
			req: bulk.Request{
				ContentType: "podcast",
				Action:      bulk.ActionToggleFeatured,
				IDs:         []int64{1},
			},
		},
		{
			name: "unknown action",
			req: bulk.Request{
				ContentType: bulk.ContentTypeMovie,
				Action:      "explode",
				IDs:         []int64{1},
			},
		},
		{
			name: "duplicate ids",
			req: bulk.Request{
				ContentType: bulk.ContentTypeMovie,
				Action:      bulk.ActionToggleFeatured,
				IDs:         []int64{1, 2, 1},
			},
		},
		{
			name: "change-status without target status",
			req: bulk.Request{
				ContentType: bulk.ContentTypeMovie,
				Action:      bulk.ActionChangeStatus,
				IDs:         []int64{1},
				Params:      bulk.Params{Confirmed: true},
			},
		},
		{
			name: "change-status without confirmation",
			req: bulk.Request{
				ContentType: bulk.ContentTypeMovie,
				Action:      bulk.ActionChangeStatus,
				IDs:         []int64{1},
				Params:      bulk.Params{Status: "published"},
			},
		},
		{
			name: "delete without confirmation",
			req: bulk.Request{
				ContentType: bulk.ContentTypeMovie,
				Action:      bulk.ActionDelete,
				IDs:         []int64{1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coordinator := newTestCoordinator(t, noopExecutor(), bulk.Options{})

			key, err := coordinator.Submit(context.Background(), tt.req)
			assert.ErrorIs(t, err, bulk.ErrInvalidRequest)
			assert.Empty(t, key)

			// No JobState was created
			assert.Equal(t, 0, coordinator.Store().Len())
		})
	}
}

func TestSubmitNoExecutor(t *testing.T) {
	store := bulk.NewStore(time.Minute)
	t.Cleanup(store.Close)
	coordinator := bulk.NewCoordinator(store, bulk.NewRegistry(), bulk.Options{Logger: zerolog.Nop()})

	_, err := coordinator.Submit(context.Background(), deleteRequest(1, 2))
	assert.ErrorIs(t, err, bulk.ErrNoExecutor)
	assert.Equal(t, 0, store.Len())
}

func TestSubmitReturnsBeforeWorkFinishes(t *testing.T) {
	release := make(chan struct{})
	exec := bulk.ExecutorFunc(func(ctx context.Context, item bulk.Item) error {
		<-release
		return nil
	})
	coordinator := newTestCoordinator(t, exec, bulk.Options{})

	key, err := coordinator.Submit(context.Background(), deleteRequest(1, 2, 3))
	require.NoError(t, err)
	require.NotEmpty(t, key)

	// Nothing has been processed yet: the executors are still blocked
	state, ok := coordinator.Store().Get(key)
	require.True(t, ok)
	assert.Equal(t, 3, state.Total)
	assert.Equal(t, 0, state.Processed)
	assert.NotEqual(t, bulk.StatusCompleted, state.Status)

	close(release)
	waitForCompleted(t, coordinator.Store(), key)
}

func TestSubmitRejectsSecondBatchWhileBusy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	exec := bulk.ExecutorFunc(func(ctx context.Context, item bulk.Item) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	})
	coordinator := newTestCoordinator(t, exec, bulk.Options{})

	key, err := coordinator.Submit(context.Background(), deleteRequest(1, 2))
	require.NoError(t, err)
	<-started

	// Back-to-back submission while the first is processing
	_, err = coordinator.Submit(context.Background(), deleteRequest(3, 4))
	assert.ErrorIs(t, err, bulk.ErrBusy)

	// Only one JobState exists
	assert.Equal(t, 1, coordinator.Store().Len())

	close(release)
	waitForCompleted(t, coordinator.Store(), key)

	// Once the first batch drains, submissions are accepted again
	require.Eventually(t, func() bool {
		_, err := coordinator.Submit(context.Background(), deleteRequest(5))
		return err == nil
	}, 5*time.Second, 5*time.Millisecond)
}

func TestSubmitKeysAreUnique(t *testing.T) {
	coordinator := newTestCoordinator(t, noopExecutor(), bulk.Options{})

	seen := make(map[bulk.Key]bool)
	for range 5 {
		var key bulk.Key
		require.Eventually(t, func() bool {
			k, err := coordinator.Submit(context.Background(), deleteRequest(1, 2))
			if err != nil {
				return false
			}
			key = k
			return true
		}, 5*time.Second, 5*time.Millisecond)

		assert.False(t, seen[key], "progress key %s issued twice", key)
		seen[key] = true
		waitForCompleted(t, coordinator.Store(), key)
	}
}

func TestExecuteSynchronousSummary(t *testing.T) {
	exec := bulk.ExecutorFunc(func(ctx context.Context, item bulk.Item) error {
		if item.ID%2 == 0 {
			return errors.New("even ids are cursed")
		}
		return nil
	})
	coordinator := newTestCoordinator(t, exec, bulk.Options{})

	summary, err := coordinator.Execute(context.Background(), deleteRequest(1, 2, 3, 4, 5))
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Len(t, summary.Errors, 2)
}

func TestExecuteHonoursBusyGuard(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	exec := bulk.ExecutorFunc(func(ctx context.Context, item bulk.Item) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	})
	coordinator := newTestCoordinator(t, exec, bulk.Options{})

	key, err := coordinator.Submit(context.Background(), deleteRequest(1))
	require.NoError(t, err)
	<-started

	_, err = coordinator.Execute(context.Background(), deleteRequest(2))
	assert.ErrorIs(t, err, bulk.ErrBusy)

	close(release)
	waitForCompleted(t, coordinator.Store(), key)
}

func TestOnBatchDoneCallback(t *testing.T) {
	exec := bulk.ExecutorFunc(func(ctx context.Context, item bulk.Item) error {
		if item.ID == 3 {
			return errors.New("not found")
		}
		return nil
	})

	done := make(chan [2]int, 1)
	coordinator := newTestCoordinator(t, exec, bulk.Options{
		OnBatchDone: func(succeeded, failed int) {
			done <- [2]int{succeeded, failed}
		},
	})

	_, err := coordinator.Execute(context.Background(), deleteRequest(1, 2, 3))
	require.NoError(t, err)

	select {
	case counts := <-done:
		assert.Equal(t, [2]int{2, 1}, counts)
	case <-time.After(time.Second):
		t.Fatal("OnBatchDone was never called")
	}
}
