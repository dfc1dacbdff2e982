package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medialib-dev/medialib/internal/catalog/bulk"
)

// PostgreSQL is an implementation of the Database interface using PostgreSQL
type PostgreSQL struct {
	pool *pgxpool.Pool
}

// NewPostgreSQL creates a new instance of the PostgreSQL database
func NewPostgreSQL(ctx context.Context, connectionURI string) (*PostgreSQL, error) {
	// Parse connection config for pool settings
	config, err := pgxpool.ParseConfig(connectionURI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}

	// Configure pool for stability-focused defaults
	config.MaxConns = 30
	config.MinConns = 5
	config.MaxConnIdleTime = 30 * time.Minute
	config.MaxConnLifetime = 2 * time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	if err := migrate(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	return &PostgreSQL{pool: pool}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range []string{"movies", "series"} {
		_, err := pool.Exec(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id         BIGSERIAL PRIMARY KEY,
				title      TEXT NOT NULL,
				status     TEXT NOT NULL DEFAULT 'draft',
				featured   BOOLEAN NOT NULL DEFAULT FALSE,
				metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, table))
		if err != nil {
			return err
		}
	}
	return nil
}

// tableFor maps a content type onto its table. Content types are a closed
// enumeration validated upstream, so the table name is never attacker
// controlled.
func tableFor(contentType bulk.ContentType) (string, error) {
	switch contentType {
	case bulk.ContentTypeMovie:
		return "movies", nil
	case bulk.ContentTypeSeries:
		return "series", nil
	default:
		return "", fmt.Errorf("unknown content type: %s", contentType)
	}
}

func (db *PostgreSQL) UpdateStatus(ctx context.Context, contentType bulk.ContentType, id int64, status string) error {
	table, err := tableFor(contentType)
	if err != nil {
		return err
	}

	tag, err := db.pool.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET status = $1, updated_at = now() WHERE id = $2", table),
		status, id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *PostgreSQL) ToggleFeatured(ctx context.Context, contentType bulk.ContentType, id int64) error {
	table, err := tableFor(contentType)
	if err != nil {
		return err
	}

	tag, err := db.pool.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET featured = NOT featured, updated_at = now() WHERE id = $1", table),
		id)
	if err != nil {
		return fmt.Errorf("failed to toggle featured flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *PostgreSQL) UpdateMetadata(ctx context.Context, contentType bulk.ContentType, id int64, metadata []byte) error {
	table, err := tableFor(contentType)
	if err != nil {
		return err
	}

	tag, err := db.pool.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET metadata = $1, updated_at = now() WHERE id = $2", table),
		metadata, id)
	if err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *PostgreSQL) Delete(ctx context.Context, contentType bulk.ContentType, id int64) error {
	table, err := tableFor(contentType)
	if err != nil {
		return err
	}

	tag, err := db.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database connection pool
func (db *PostgreSQL) Close() error {
	db.pool.Close()
	return nil
}
