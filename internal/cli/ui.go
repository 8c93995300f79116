package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/triangs/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary values
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleKey    = lipgloss.NewStyle().Foreground(colorGray).Width(14)
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorGray)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints a detail line (indented).
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printKeyValue prints a labeled value.
func printKeyValue(w io.Writer, key, value string) {
	fmt.Fprintln(w, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// =============================================================================
// Run Summary
// =============================================================================

// printSummary prints the counters of a finished or interrupted run.
func printSummary(w io.Writer, res *pipeline.Result) {
	if res.Interrupted {
		printWarning(w, "Interrupted after %d steps", res.Steps)
	} else {
		printSuccess(w, "Enumerated %s symmetry classes, %s triangulations",
			StyleNumber.Render(fmt.Sprint(res.SymCount)),
			StyleNumber.Render(fmt.Sprint(res.TotalCount)))
	}
	printKeyValue(w, "run", res.RunID)
	printKeyValue(w, "points", fmt.Sprintf("%d in rank %d", res.No, res.Rank))
	printKeyValue(w, "group order", fmt.Sprint(res.GroupOrder))
	printKeyValue(w, "processed", fmt.Sprint(res.Processed))
	printKeyValue(w, "flips", fmt.Sprint(res.Flips))
	printStats(w, res)
	if res.Checkpoint != "" {
		printDetail(w, "Checkpoint: %s", res.Checkpoint)
	}
}

// printStats prints stage timings and the cache status on a single line.
func printStats(w io.Writer, res *pipeline.Result) {
	parts := []string{
		"load " + res.Stats.LoadTime.Round(time.Millisecond).String(),
		"enumerate " + res.Stats.EnumerateTime.Round(time.Millisecond).String(),
	}
	status, style := iconFresh, styleComputed
	if res.CacheInfo.ChirotopeHit {
		status, style = iconCached, styleCached
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	line += StyleDim.Render(" · chirotope ") + style.Render(status)
	fmt.Fprintln(w, line)
}

// =============================================================================
// Tables
// =============================================================================

// printTable renders rows under a bold header, padding every column to its
// widest cell.
func printTable(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	render := func(cells []string, style lipgloss.Style) string {
		out := make([]string, len(cells))
		for i, cell := range cells {
			out[i] = style.Width(widths[i]).Render(cell)
		}
		return strings.TrimRight(strings.Join(out, "  "), " ")
	}
	fmt.Fprintln(w, render(header, styleHeader))
	for _, row := range rows {
		fmt.Fprintln(w, render(row, StyleValue))
	}
}
