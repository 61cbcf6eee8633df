package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCachePath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	path, err := DefaultCachePath("cache.db")
	if err != nil {
		t.Fatalf("DefaultCachePath() error = %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("DefaultCachePath() = %q, should be absolute", path)
	}
	if filepath.Base(path) != "cache.db" {
		t.Errorf("DefaultCachePath() = %q, want cache.db basename", path)
	}
	if !strings.Contains(path, AppName) {
		t.Errorf("DefaultCachePath() = %q, want %q in path", path, AppName)
	}
}

func TestEnsureDirectoryExists(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name     string
		filePath string
	}{
		{name: "current directory", filePath: "cache.db"},
		{name: "single directory", filePath: filepath.Join(tempDir, "one", "cache.db")},
		{name: "nested directories", filePath: filepath.Join(tempDir, "a", "b", "c", "cache.db")},
		{name: "path with spaces", filePath: filepath.Join(tempDir, "dir with spaces", "cache.db")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := EnsureDirectoryExists(tt.filePath); err != nil {
				t.Fatalf("EnsureDirectoryExists(%q) error = %v", tt.filePath, err)
			}
			if _, err := os.Stat(filepath.Dir(tt.filePath)); err != nil {
				t.Errorf("directory for %q not created: %v", tt.filePath, err)
			}
		})
	}

	t.Run("existing directory", func(t *testing.T) {
		path := filepath.Join(tempDir, "one", "again.db")
		if err := EnsureDirectoryExists(path); err != nil {
			t.Errorf("EnsureDirectoryExists(%q) error = %v", path, err)
		}
	})

	t.Run("parent is a file", func(t *testing.T) {
		blocker := filepath.Join(tempDir, "blocker")
		if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := EnsureDirectoryExists(filepath.Join(blocker, "sub", "cache.db")); err == nil {
			t.Error("expected error when parent path is a file")
		}
	})
}
