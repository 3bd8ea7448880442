package logger

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger wraps charm/log for structured logging
type Logger struct {
	*log.Logger
}

// New creates a new logger with the given output
func New(w io.Writer) *Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	return &Logger{Logger: l}
}

// NewWithLevel creates a logger with a specific level
func NewWithLevel(w io.Writer, level log.Level) *Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level,
	})
	return &Logger{Logger: l}
}

// NewFileLogger creates a logger that writes to a file
func NewFileLogger(path string) (*Logger, func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	l := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})

	cleanup := func() {
		f.Close()
	}

	return &Logger{Logger: l}, cleanup, nil
}

// NewMultiLogger creates a logger that writes to multiple outputs
func NewMultiLogger(writers ...io.Writer) *Logger {
	w := io.MultiWriter(writers...)
	return New(w)
}

// Discard returns a logger that discards all output
func Discard() *Logger {
	return New(io.Discard)
}

// PullCompleted logs a page written to disk
func (l *Logger) PullCompleted(pageID, path string, version, blocks int) {
	l.Info("page pulled",
		"page_id", pageID,
		"path", path,
		"version", version,
		"blocks", blocks)
}

// PushPlanned logs how a page upload will be submitted
func (l *Logger) PushPlanned(pageID, mode string, changed, missing []string) {
	l.Info("push planned",
		"page_id", pageID,
		"mode", mode,
		"changed", len(changed),
		"missing", len(missing))
}

// UnsupportedFeature logs a storage construct that did not survive conversion
func (l *Logger) UnsupportedFeature(pageID, feature string, count int) {
	l.Warn("unsupported feature",
		"page_id", pageID,
		"feature", feature,
		"count", count)
}

// FallbackToFull logs a targeted update that had to become a full one
func (l *Logger) FallbackToFull(pageID, reason string) {
	l.Warn("falling back to full update",
		"page_id", pageID,
		"reason", reason)
}

// ConversionError logs a conversion error
func (l *Logger) ConversionError(source string, err error) {
	l.Error("conversion failed",
		"source", source,
		"error", err)
}

// StateError logs a state-related error
func (l *Logger) StateError(operation string, err error) {
	l.Error("state error",
		"operation", operation,
		"error", err)
}

// ConfigLoaded logs successful config loading
func (l *Logger) ConfigLoaded(workspaceDir, snapshotDir string, imageWidth int) {
	l.Debug("config loaded",
		"workspace_dir", workspaceDir,
		"snapshot_dir", snapshotDir,
		"image_width", imageWidth)
}
