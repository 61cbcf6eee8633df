// Package store persists collection items and per-page refresh timestamps
// in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/pagesync/pkg/collection"
	"github.com/lepinkainen/pagesync/pkg/database"
)

// ErrStorage marks every persistence fault returned by the store
var ErrStorage = errors.New("storage failure")

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

const schema = `
CREATE TABLE IF NOT EXISTS collection_items (
	id INTEGER PRIMARY KEY,                 -- remote item id, the upsert conflict key
	title TEXT NOT NULL,
	owner_key TEXT NOT NULL,
	image_ref TEXT NOT NULL,
	width INTEGER NOT NULL DEFAULT 1,
	height INTEGER NOT NULL DEFAULT 1,
	alt_text TEXT,
	page INTEGER NOT NULL,
	partition_key TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_collection_items_page ON collection_items(partition_key, page);

CREATE TABLE IF NOT EXISTS page_freshness (
	partition_key TEXT NOT NULL,
	page INTEGER NOT NULL,
	refreshed_at INTEGER NOT NULL,          -- unix nanoseconds
	PRIMARY KEY (partition_key, page)
);

CREATE INDEX IF NOT EXISTS idx_page_freshness_refreshed ON page_freshness(refreshed_at);
`

// Meta is the page metadata the store can answer from what it holds
type Meta struct {
	PageSize   int
	TotalItems int
}

// Store is the persistent cache of collection pages
type Store struct {
	db  *database.Database
	now func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock sets the clock used for refresh timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a store on db and initializes its schema
func New(ctx context.Context, db *database.Database, opts ...Option) (*Store, error) {
	s := &Store{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := db.ExecuteSchema(ctx, schema); err != nil {
		return nil, storageError("initialize schema", err)
	}

	slog.Debug("Store schema initialized", "path", db.Path())
	return s, nil
}

// FreshnessOf returns when the page was last refreshed, or the zero time
// when it never was
func (s *Store) FreshnessOf(ctx context.Context, partitionKey string, page int) (time.Time, error) {
	var nanos int64
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT refreshed_at FROM page_freshness WHERE partition_key = ? AND page = ?`,
		partitionKey, page).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, storageError("read freshness", err)
	}

	return time.Unix(0, nanos), nil
}

// ItemsOf returns the stored items of a page ordered by ascending id
func (s *Store) ItemsOf(ctx context.Context, partitionKey string, page int) ([]collection.Item, error) {
	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT id, title, owner_key, image_ref, width, height, alt_text, page, partition_key
		FROM collection_items
		WHERE partition_key = ? AND page = ?
		ORDER BY id ASC`, partitionKey, page)
	if err != nil {
		return nil, storageError("query items", err)
	}
	defer func() { _ = rows.Close() }()

	items := []collection.Item{}
	for rows.Next() {
		var item collection.Item
		var altText sql.NullString
		if err := rows.Scan(&item.ID, &item.Title, &item.OwnerKey, &item.ExternalImageRef,
			&item.Width, &item.Height, &altText, &item.Page, &item.PartitionKey); err != nil {
			return nil, storageError("scan item", err)
		}
		if altText.Valid {
			item.AltText = &altText.String
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate items", err)
	}

	return items, nil
}

// MetaOf returns the page size and item count for a stored page. The page
// size is the number of stored items, or fallbackPageSize when there are none.
func (s *Store) MetaOf(ctx context.Context, partitionKey string, page, fallbackPageSize int) (Meta, error) {
	var count int
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collection_items WHERE partition_key = ? AND page = ?`,
		partitionKey, page).Scan(&count)
	if err != nil {
		return Meta{}, storageError("count items", err)
	}

	meta := Meta{PageSize: count, TotalItems: count}
	if count == 0 {
		meta.PageSize = fallbackPageSize
	}
	return meta, nil
}

// Upsert writes the fetched items and marks the page as refreshed now, in
// one transaction. Items without an image reference are skipped.
func (s *Store) Upsert(ctx context.Context, fetched *collection.RemotePage, partitionKey string) error {
	ownerKey := collection.OwnerKey(partitionKey)
	refreshedAt := s.now()

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO collection_items (id, title, owner_key, image_ref, width, height, alt_text, page, partition_key)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				owner_key = excluded.owner_key,
				image_ref = excluded.image_ref,
				width = excluded.width,
				height = excluded.height,
				alt_text = excluded.alt_text,
				page = excluded.page,
				partition_key = excluded.partition_key`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		written := 0
		for _, item := range fetched.Items {
			if item.ImageRef == "" {
				slog.Debug("Skipping item without image reference", "id", item.ID)
				continue
			}

			var altText sql.NullString
			if item.AltText != nil {
				altText = sql.NullString{String: *item.AltText, Valid: true}
			}

			if _, err := stmt.ExecContext(ctx, item.ID, item.Title, ownerKey, item.ImageRef,
				dimension(item.Width), dimension(item.Height), altText, fetched.Page, partitionKey); err != nil {
				return fmt.Errorf("item %d: %w", item.ID, err)
			}
			written++
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO page_freshness (partition_key, page, refreshed_at)
			VALUES (?, ?, ?)
			ON CONFLICT(partition_key, page) DO UPDATE SET refreshed_at = excluded.refreshed_at`,
			partitionKey, fetched.Page, refreshedAt.UnixNano()); err != nil {
			return fmt.Errorf("freshness: %w", err)
		}

		slog.Debug("Upserted page", "partition", partitionKey, "page", fetched.Page,
			"written", written, "skipped", len(fetched.Items)-written)
		return nil
	})
	if err != nil {
		return storageError("upsert page", err)
	}

	return nil
}

// dimension defaults unknown sizes to 1
func dimension(v int) int {
	if v <= 0 {
		return 1
	}
	return v
}
