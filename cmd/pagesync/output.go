package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/pagesync/pkg/collection"
	"github.com/lepinkainen/pagesync/pkg/database"
	"github.com/lepinkainen/pagesync/pkg/preview"
	"github.com/lepinkainen/pagesync/pkg/store"
)

// thumbnailer builds list-view image URLs
type thumbnailer interface {
	ThumbnailURL(item collection.Item) string
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// writeStructured writes v as JSON or YAML. It reports false for other formats.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func printPage(w io.Writer, format string, page *collection.Page[collection.Item], thumbs thumbnailer) error {
	if ok, err := writeStructured(w, format, page); ok {
		return err
	}

	t := newTable("#", "ID", "Title", "Size", "Thumbnail")
	for i, item := range page.Items {
		thumb := ""
		if thumbs != nil && item.ExternalImageRef != "" {
			thumb = thumbs.ThumbnailURL(item)
		}
		t.Row(
			strconv.Itoa(i+1),
			strconv.Itoa(item.ID),
			item.Title,
			fmt.Sprintf("%d×%d", item.Width, item.Height),
			thumb,
		)
	}

	if _, err := fmt.Fprintln(w, preview.FormatPagePosition(page)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// statsReport is the combined output of the stats command
type statsReport struct {
	Path     string         `json:"path" yaml:"path"`
	Store    *store.Stats   `json:"store" yaml:"store"`
	Database *database.Info `json:"database" yaml:"database"`
}

func printStats(w io.Writer, format, path string, stats *store.Stats, info *database.Info) error {
	report := statsReport{Path: path, Store: stats, Database: info}
	if ok, err := writeStructured(w, format, report); ok {
		return err
	}

	t := newTable("Key", "Value").
		Row("Path", path).
		Row("Items", strconv.Itoa(stats.Items)).
		Row("Pages", strconv.Itoa(stats.Pages)).
		Row("Collections", strconv.Itoa(stats.Partitions)).
		Row("Oldest refresh", formatTime(stats.OldestRefresh)).
		Row("Newest refresh", formatTime(stats.NewestRefresh)).
		Row("File size", fmt.Sprintf("%d bytes", info.FileSizeBytes)).
		Row("SQLite", info.SQLiteVersion).
		Row("Journal mode", info.JournalMode)

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}
