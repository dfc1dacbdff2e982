package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medialib-dev/medialib/internal/catalog/bulk"
	"github.com/medialib-dev/medialib/internal/catalog/database"
	"github.com/medialib-dev/medialib/internal/catalog/service"
)

// fakeDatabase records every mutation it receives.
type fakeDatabase struct {
	mu       sync.Mutex
	calls    []string
	metadata map[int64][]byte
	failID   int64
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{metadata: make(map[int64][]byte)}
}

func (f *fakeDatabase) record(call string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failID != 0 && id == f.failID {
		return database.ErrNotFound
	}
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeDatabase) UpdateStatus(_ context.Context, contentType bulk.ContentType, id int64, status string) error {
	return f.record(fmt.Sprintf("status %s/%d=%s", contentType, id, status), id)
}

func (f *fakeDatabase) ToggleFeatured(_ context.Context, contentType bulk.ContentType, id int64) error {
	return f.record(fmt.Sprintf("feature %s/%d", contentType, id), id)
}

func (f *fakeDatabase) UpdateMetadata(_ context.Context, contentType bulk.ContentType, id int64, metadata []byte) error {
	f.mu.Lock()
	f.metadata[id] = metadata
	f.mu.Unlock()
	return f.record(fmt.Sprintf("metadata %s/%d", contentType, id), id)
}

func (f *fakeDatabase) Delete(_ context.Context, contentType bulk.ContentType, id int64) error {
	return f.record(fmt.Sprintf("delete %s/%d", contentType, id), id)
}

func (f *fakeDatabase) Close() error { return nil }

type fakeFetcher struct {
	err error
}

func (f *fakeFetcher) Fetch(_ context.Context, contentType string, id int64) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte(fmt.Sprintf(`{"type":%q,"id":%d}`, contentType, id)), nil
}

func lookup(t *testing.T, registry *bulk.Registry, contentType bulk.ContentType, action bulk.Action) bulk.Executor {
	t.Helper()
	exec, ok := registry.Lookup(contentType, action)
	require.True(t, ok)
	return exec
}

func TestRegisterExecutorsCoversAllPairs(t *testing.T) {
	registry := bulk.NewRegistry()
	service.RegisterExecutors(registry, newFakeDatabase(), &fakeFetcher{})

	for _, contentType := range []bulk.ContentType{bulk.ContentTypeMovie, bulk.ContentTypeSeries} {
		for _, action := range []bulk.Action{
			bulk.ActionChangeStatus,
			bulk.ActionToggleFeatured,
			bulk.ActionRefreshMetadata,
			bulk.ActionDelete,
		} {
			_, ok := registry.Lookup(contentType, action)
			assert.True(t, ok, "%s %s", contentType, action)
		}
	}
}

func TestRefreshAbsentWithoutFetcher(t *testing.T) {
	registry := bulk.NewRegistry()
	service.RegisterExecutors(registry, newFakeDatabase(), nil)

	_, ok := registry.Lookup(bulk.ContentTypeMovie, bulk.ActionRefreshMetadata)
	assert.False(t, ok)

	// Everything else is still wired
	_, ok = registry.Lookup(bulk.ContentTypeMovie, bulk.ActionDelete)
	assert.True(t, ok)
}

func TestExecutorsDispatchToDatabase(t *testing.T) {
	db := newFakeDatabase()
	registry := bulk.NewRegistry()
	service.RegisterExecutors(registry, db, &fakeFetcher{})

	ctx := context.Background()

	exec := lookup(t, registry, bulk.ContentTypeMovie, bulk.ActionChangeStatus)
	require.NoError(t, exec.Execute(ctx, bulk.Item{
		ContentType: bulk.ContentTypeMovie,
		ID:          1,
		Params:      bulk.Params{Status: "published"},
	}))

	exec = lookup(t, registry, bulk.ContentTypeSeries, bulk.ActionToggleFeatured)
	require.NoError(t, exec.Execute(ctx, bulk.Item{ContentType: bulk.ContentTypeSeries, ID: 2}))

	exec = lookup(t, registry, bulk.ContentTypeMovie, bulk.ActionDelete)
	require.NoError(t, exec.Execute(ctx, bulk.Item{ContentType: bulk.ContentTypeMovie, ID: 3}))

	assert.Equal(t, []string{
		"status movie/1=published",
		"feature series/2",
		"delete movie/3",
	}, db.calls)
}

func TestRefreshMetadataStoresFetchedDocument(t *testing.T) {
	db := newFakeDatabase()
	registry := bulk.NewRegistry()
	service.RegisterExecutors(registry, db, &fakeFetcher{})

	exec := lookup(t, registry, bulk.ContentTypeMovie, bulk.ActionRefreshMetadata)
	require.NoError(t, exec.Execute(context.Background(), bulk.Item{
		ContentType: bulk.ContentTypeMovie,
		ID:          9,
	}))

	assert.JSONEq(t, `{"type":"movie","id":9}`, string(db.metadata[9]))
}

func TestRefreshMetadataFetchFailureSkipsWrite(t *testing.T) {
	db := newFakeDatabase()
	registry := bulk.NewRegistry()
	fetchErr := errors.New("provider unavailable")
	service.RegisterExecutors(registry, db, &fakeFetcher{err: fetchErr})

	exec := lookup(t, registry, bulk.ContentTypeSeries, bulk.ActionRefreshMetadata)
	err := exec.Execute(context.Background(), bulk.Item{ContentType: bulk.ContentTypeSeries, ID: 4})
	assert.ErrorIs(t, err, fetchErr)
	assert.Empty(t, db.calls)
}

func TestExecutorSurfacesNotFound(t *testing.T) {
	db := newFakeDatabase()
	db.failID = 42
	registry := bulk.NewRegistry()
	service.RegisterExecutors(registry, db, nil)

	exec := lookup(t, registry, bulk.ContentTypeMovie, bulk.ActionDelete)
	err := exec.Execute(context.Background(), bulk.Item{ContentType: bulk.ContentTypeMovie, ID: 42})
	assert.ErrorIs(t, err, database.ErrNotFound)
}
