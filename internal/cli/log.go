// Package cli implements the triangs command-line interface.
//
// The CLI is a thin cobra layer over pkg/pipeline. It adds configuration
// files, cache backend selection, the HTTP status endpoint and human
// readable summaries.
//
// # Commands
//
//   - enumerate: Run (or resume) a flip graph enumeration
//   - catalog: Inspect classes stored by --catalog
//   - checkpoint: Inspect checkpoint files
//   - cache: Manage the chirotope cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Logs go to
// stderr; stdout carries only the requested triangulations and flips.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Loaded 42 classes (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
