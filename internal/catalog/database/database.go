// Package database provides the PostgreSQL-backed content store the bulk
// executors run against.
package database

import (
	"context"
	"errors"

	"github.com/medialib-dev/medialib/internal/catalog/bulk"
)

// ErrNotFound is returned when an item id does not exist in the store.
var ErrNotFound = errors.New("record not found")

// Database is the interface for content record mutations.
type Database interface {
	// UpdateStatus sets the publication status of a record.
	UpdateStatus(ctx context.Context, contentType bulk.ContentType, id int64, status string) error

	// ToggleFeatured flips the featured flag of a record.
	ToggleFeatured(ctx context.Context, contentType bulk.ContentType, id int64) error

	// UpdateMetadata replaces the stored metadata document of a record.
	UpdateMetadata(ctx context.Context, contentType bulk.ContentType, id int64, metadata []byte) error

	// Delete permanently removes a record.
	Delete(ctx context.Context, contentType bulk.ContentType, id int64) error

	// Close closes the underlying connection pool.
	Close() error
}
