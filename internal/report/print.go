package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	downsized = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	generated = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	deleted   = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	failed    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	idle      = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// Totals are the planning numbers the summary line refers to.
type Totals struct {
	PlannedClones int
	QueuedSources int
}

// Line renders the one-line summary, or "" when nothing happened.
func Line(s Summary, totals Totals) string {
	var parts []string
	if n := len(s.ResizedOriginals); n > 0 {
		parts = append(parts, downsized.Render(fmt.Sprintf("%d originals downsized", n)))
	}
	if n := len(s.NewClones); n > 0 {
		parts = append(parts, generated.Render(fmt.Sprintf("%d of %d new clones generated, based on %d original images", n, totals.PlannedClones, totals.QueuedSources)))
	}
	if n := len(s.DeletedImages); n > 0 {
		parts = append(parts, deleted.Render(fmt.Sprintf("%d orphaned images deleted", n)))
	}
	if n := len(s.DeletedDirs); n > 0 {
		parts = append(parts, deleted.Render(fmt.Sprintf("%d orphaned directories deleted", n)))
	}
	if n := len(s.Failed); n > 0 {
		parts = append(parts, failed.Render(fmt.Sprintf("%d failed", n)))
	}
	return strings.Join(parts, ", ")
}

// Print writes the final summary to w.
func Print(w io.Writer, s Summary, totals Totals, elapsed time.Duration) {
	line := Line(s, totals)
	if line == "" {
		fmt.Fprintln(w, idle.Render("Responsive image directory - no images to process."))
		return
	}
	fmt.Fprintf(w, "%s in %s\n", line, FormatDuration(elapsed))
	for _, f := range s.Failed {
		fmt.Fprintf(w, "[ERROR] %s: %s\n", f.File, f.Error)
	}
}

const clearLine = "\r\x1b[2K"

// Progress returns a callback that redraws the summary line in place.
// totals is read on every call, so it may be filled in after planning.
func Progress(w io.Writer, totals *Totals, start time.Time) func(Summary) {
	return func(s Summary) {
		line := Line(s, *totals)
		if line == "" {
			return
		}
		fmt.Fprintf(w, "%s%s in %s", clearLine, line, FormatDuration(time.Since(start)))
	}
}

// ClearProgress erases the line left by Progress.
func ClearProgress(w io.Writer) {
	fmt.Fprint(w, clearLine)
}

// Planned prints the pre-run estimate.
func Planned(w io.Writer, sources, total, queued int, sourceDir, outputDir string) {
	fmt.Fprintln(w, downsized.Render(fmt.Sprintf("%d original images in %s will result in %d responsive images in %s.", sources, sourceDir, total, outputDir)))
	fmt.Fprintln(w, downsized.Render(fmt.Sprintf("%d already exist, %d will be generated now.", total-queued, queued)))
}
