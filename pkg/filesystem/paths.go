// Package filesystem resolves on-disk locations for the cache.
package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// AppName names the per-user cache directory
const AppName = "pagesync"

// ErrDirNotFound is returned when a parent directory cannot be created
var ErrDirNotFound = errors.New("directory not found")

// DefaultCachePath returns filename inside the user cache directory.
// It falls back to the executable directory when no cache directory is
// available.
func DefaultCachePath(filename string) (string, error) {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, AppName, filename), nil
	}

	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	return filepath.Join(filepath.Dir(exePath), filename), nil
}

// EnsureDirectoryExists creates the directory for the given file path if it doesn't exist
func EnsureDirectoryExists(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrDirNotFound, dir)
		}
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return nil
}
