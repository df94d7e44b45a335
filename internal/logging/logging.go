// Package logging builds the daemon's slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	// DefaultMaxBytes caps the log file before it is rotated.
	DefaultMaxBytes = 10 * 1024 * 1024
	// DefaultMaxFiles is the number of rotated backups kept.
	DefaultMaxFiles = 3
)

// Options configures New.
type Options struct {
	Level    string
	File     string
	MaxBytes int64
	MaxFiles int
	// Stderr defaults to os.Stderr.
	Stderr io.Writer
}

// ParseLevel converts a config level name. Unknown names are an error so a
// typo in the config is reported instead of silently logging at info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger is a configured logger plus the level handle, so a config reload can
// change verbosity without rebuilding handlers.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	file  *RotatingFile
}

// New builds a text logger on stderr, teeing to a rotating file when
// opts.File is set.
func New(opts Options) (*Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	level := new(slog.LevelVar)
	level.Set(lvl)

	var out io.Writer = opts.Stderr
	if out == nil {
		out = os.Stderr
	}

	l := &Logger{level: level}
	if opts.File != "" {
		maxBytes, maxFiles := opts.MaxBytes, opts.MaxFiles
		if maxBytes <= 0 {
			maxBytes = DefaultMaxBytes
		}
		if maxFiles <= 0 {
			maxFiles = DefaultMaxFiles
		}
		f, err := OpenRotatingFile(opts.File, maxBytes, maxFiles)
		if err != nil {
			return nil, err
		}
		l.file = f
		out = io.MultiWriter(out, f)
	}

	l.Logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return l, nil
}

// SetLevel changes the level of every logger derived from l.
func (l *Logger) SetLevel(s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	l.level.Set(lvl)
	return nil
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
