package database

import (
	"context"
	"fmt"
	"os"
)

// GetDatabaseSize returns the size of the database file in bytes
func GetDatabaseSize(dbPath string) (int64, error) {
	info, err := os.Stat(dbPath)
	if err != nil {
		return 0, fmt.Errorf("failed to get database file info: %w", err)
	}

	return info.Size(), nil
}

// Vacuum runs VACUUM on the database to reclaim space
func (db *Database) Vacuum(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	return nil
}

// Info describes the database file and engine
type Info struct {
	SQLiteVersion string `json:"sqlite_version" yaml:"sqlite_version"`
	JournalMode   string `json:"journal_mode" yaml:"journal_mode"`
	FileSizeBytes int64  `json:"file_size_bytes" yaml:"file_size_bytes"`
	TableCount    int    `json:"table_count" yaml:"table_count"`
}

// Info returns information about the database
func (db *Database) Info(ctx context.Context) (*Info, error) {
	conn := db.DB()
	info := &Info{}

	if err := conn.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&info.SQLiteVersion); err != nil {
		return nil, fmt.Errorf("failed to get SQLite version: %w", err)
	}

	if err := conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&info.JournalMode); err != nil {
		return nil, fmt.Errorf("failed to get journal mode: %w", err)
	}

	if size, err := GetDatabaseSize(db.Path()); err == nil {
		info.FileSizeBytes = size
	}

	err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&info.TableCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get table count: %w", err)
	}

	return info, nil
}
