package store

import (
	"context"
	"database/sql"
	"time"
)

// PruneResult counts what Prune removed
type PruneResult struct {
	Pages int64 `json:"pages" yaml:"pages"`
	Items int64 `json:"items" yaml:"items"`
}

// Prune deletes pages last refreshed more than olderThan ago, together with
// the items stored for them
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (PruneResult, error) {
	var result PruneResult
	cutoff := s.now().Add(-olderThan).UnixNano()

	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM collection_items
			WHERE EXISTS (
				SELECT 1 FROM page_freshness f
				WHERE f.partition_key = collection_items.partition_key
					AND f.page = collection_items.page
					AND f.refreshed_at < ?
			)`, cutoff)
		if err != nil {
			return err
		}
		result.Items, _ = res.RowsAffected()

		res, err = tx.ExecContext(ctx, `DELETE FROM page_freshness WHERE refreshed_at < ?`, cutoff)
		if err != nil {
			return err
		}
		result.Pages, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return PruneResult{}, storageError("prune", err)
	}

	return result, nil
}

// Stats summarizes the store contents
type Stats struct {
	Items         int        `json:"items" yaml:"items"`
	Pages         int        `json:"pages" yaml:"pages"`
	Partitions    int        `json:"partitions" yaml:"partitions"`
	OldestRefresh *time.Time `json:"oldest_refresh,omitempty" yaml:"oldest_refresh,omitempty"`
	NewestRefresh *time.Time `json:"newest_refresh,omitempty" yaml:"newest_refresh,omitempty"`
}

// Stats returns counts of stored items and pages
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	db := s.db.DB()
	stats := &Stats{}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collection_items`).Scan(&stats.Items); err != nil {
		return nil, storageError("count items", err)
	}

	var oldest, newest sql.NullInt64
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT partition_key), MIN(refreshed_at), MAX(refreshed_at)
		FROM page_freshness`).Scan(&stats.Pages, &stats.Partitions, &oldest, &newest)
	if err != nil {
		return nil, storageError("count pages", err)
	}

	if oldest.Valid {
		t := time.Unix(0, oldest.Int64)
		stats.OldestRefresh = &t
	}
	if newest.Valid {
		t := time.Unix(0, newest.Int64)
		stats.NewestRefresh = &t
	}

	return stats, nil
}
