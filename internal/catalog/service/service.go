// Package service binds the catalog's business logic to the bulk engine as
// per-(content-type, action) executors. The engine never sees what a movie
// or series is; it only gets the executors registered here.
package service

import (
	"context"

	"github.com/medialib-dev/medialib/internal/catalog/bulk"
	"github.com/medialib-dev/medialib/internal/catalog/database"
)

// MetadataFetcher retrieves a fresh metadata document for one record.
type MetadataFetcher interface {
	Fetch(ctx context.Context, contentType string, id int64) ([]byte, error)
}

// RegisterExecutors fills the registry with one executor per supported
// (content-type, action) pair. Refresh executors are registered only when a
// metadata fetcher is configured; without one, refresh-metadata submissions
// fail with the engine's no-executor error.
func RegisterExecutors(registry *bulk.Registry, db database.Database, fetcher MetadataFetcher) {
	for _, contentType := range []bulk.ContentType{bulk.ContentTypeMovie, bulk.ContentTypeSeries} {
		registry.Register(contentType, bulk.ActionChangeStatus, changeStatus(db))
		registry.Register(contentType, bulk.ActionToggleFeatured, toggleFeatured(db))
		registry.Register(contentType, bulk.ActionDelete, deleteRecord(db))

		if fetcher != nil {
			registry.Register(contentType, bulk.ActionRefreshMetadata, refreshMetadata(db, fetcher))
		}
	}
}

func changeStatus(db database.Database) bulk.Executor {
	return bulk.ExecutorFunc(func(ctx context.Context, item bulk.Item) error {
		return db.UpdateStatus(ctx, item.ContentType, item.ID, item.Params.Status)
	})
}

func toggleFeatured(db database.Database) bulk.Executor {
	return bulk.ExecutorFunc(func(ctx context.Context, item bulk.Item) error {
		return db.ToggleFeatured(ctx, item.ContentType, item.ID)
	})
}

func deleteRecord(db database.Database) bulk.Executor {
	return bulk.ExecutorFunc(func(ctx context.Context, item bulk.Item) error {
		return db.Delete(ctx, item.ContentType, item.ID)
	})
}

func refreshMetadata(db database.Database, fetcher MetadataFetcher) bulk.Executor {
	return bulk.ExecutorFunc(func(ctx context.Context, item bulk.Item) error {
		doc, err := fetcher.Fetch(ctx, string(item.ContentType), item.ID)
		if err != nil {
			return err
		}
		return db.UpdateMetadata(ctx, item.ContentType, item.ID, doc)
	})
}
