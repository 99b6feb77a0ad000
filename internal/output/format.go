// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"optask/internal/optimistic"
	"optask/internal/service"
)

// FormatItem formats an item line.
// Format: "{ID:>4}  [x] {TITLE}" with " *" appended while the item is pending.
// Placeholders that have no store ID yet show "-" in the ID column.
func FormatItem(w io.Writer, it service.Item) {
	id := "-"
	if it.ID > 0 {
		id = fmt.Sprint(it.ID)
	}
	mark := " "
	if it.Done {
		mark = "x"
	}
	suffix := ""
	if it.Pending {
		suffix = " *"
	}
	fmt.Fprintf(w, "%4s  [%s] %s%s\n", id, mark, normalizeTitle(it.Title), suffix)
}

// FormatStats formats the derived counts.
func FormatStats(w io.Writer, s optimistic.Stats) {
	fmt.Fprintf(w, "total: %d • done: %d • left: %d\n", s.Total, s.Done, s.Remaining)
}

// FormatSnapshot formats the whole view: load state, items and stats.
func FormatSnapshot(w io.Writer, snap optimistic.Snapshot) {
	if snap.Loading {
		fmt.Fprintln(w, "loading…")
	}
	if snap.Err != nil {
		fmt.Fprintf(w, "load failed: %v (run: retry)\n", snap.Err)
	}
	for _, it := range snap.Items {
		FormatItem(w, it)
	}
	if len(snap.Items) == 0 && !snap.Loading && snap.Err == nil {
		fmt.Fprintln(w, "no tasks yet")
	}
	FormatStats(w, snap.Stats())
}

// normalizeTitle normalizes an item title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
