// Package preview provides an interactive collection browser using Bubble Tea TUI.
package preview

import (
	"fmt"
	"strings"

	"github.com/lepinkainen/pagesync/pkg/collection"
)

const maxTitleLength = 70

// wrapText wraps text to the specified width, breaking at word boundaries when possible
func wrapText(text string, width int) string {
	if width <= 0 {
		width = 70
	}

	var result strings.Builder
	var line strings.Builder
	lineLen := 0

	words := strings.Fields(text)
	for i, word := range words {
		wordLen := len(word)

		if lineLen > 0 && lineLen+1+wordLen > width {
			result.WriteString(line.String())
			result.WriteString("\n")
			line.Reset()
			lineLen = 0
		}

		if lineLen > 0 {
			line.WriteString(" ")
			lineLen++
		}

		line.WriteString(word)
		lineLen += wordLen

		if i == len(words)-1 {
			result.WriteString(line.String())
		}
	}

	return result.String()
}

// truncate shortens s to max runes, marking the cut with "..."
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// FormatCompactListItem formats a single item in compact list format
// Example: " 1. [#16568  3000×2841] Water Lilies"
func FormatCompactListItem(index int, item collection.Item) string {
	title := item.Title
	if title == "" {
		title = "(untitled)"
	}
	size := fmt.Sprintf("%d×%d", item.Width, item.Height)
	return fmt.Sprintf("%2d. [#%-6d %9s] %s", index+1, item.ID, size, truncate(title, maxTitleLength))
}

// FormatDetailedItem formats a single item with all metadata. imageURL may be empty.
func FormatDetailedItem(item collection.Item, imageURL string) string {
	var b strings.Builder

	b.WriteString("═══════════════════════════════════════════════════════════════════════\n")
	b.WriteString(fmt.Sprintf("Title: %s\n", item.Title))
	b.WriteString(fmt.Sprintf("ID: %d\n", item.ID))
	b.WriteString(fmt.Sprintf("Collection: %s | Page: %d\n", item.OwnerKey, item.Page))
	b.WriteString(fmt.Sprintf("Size: %d×%d (aspect %.2f)\n", item.Width, item.Height, item.AspectRatio()))
	b.WriteString(fmt.Sprintf("Image ID: %s\n", item.ExternalImageRef))

	if imageURL != "" {
		b.WriteString(fmt.Sprintf("Image: %s\n", imageURL))
	}

	if item.AltText != nil && *item.AltText != "" {
		b.WriteString(fmt.Sprintf("\nDescription:\n%s\n", wrapText(*item.AltText, 70)))
	}

	b.WriteString("═══════════════════════════════════════════════════════════════════════\n")

	return b.String()
}

// FormatPagePosition describes where a page sits in its collection.
// Pages served from the cache have no known page count.
func FormatPagePosition(page *collection.Page[collection.Item]) string {
	if page == nil {
		return ""
	}
	if page.TotalPages == collection.UnboundedPages {
		return fmt.Sprintf("page %d (cached, %d items)", page.Page, page.TotalItems)
	}
	return fmt.Sprintf("page %d/%d (%d items)", page.Page, page.TotalPages, page.TotalItems)
}
