// Package logging provides the subsystem loggers used by the referee. Output
// goes to stdout and, when configured, to a size-rotated log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// LogConfig configures a LogBackend.
type LogConfig struct {
	LogFile     string // empty logs to stdout only
	DebugLevel  string // trace, debug, info, warn, error, critical or off
	MaxLogFiles int    // rotated files kept
	MaxBufferKB int    // file size that triggers a rotation
}

// LogBackend hands out one logger per subsystem, all sharing a level.
type LogBackend struct {
	backend *slog.Backend
	level   slog.Level

	rotator *rotator.Rotator
	pipe    *io.PipeWriter
	done    chan struct{}

	mu      sync.Mutex
	loggers map[string]slog.Logger
}

// ParseLevel parses a level name. The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	lvl, ok := slog.LevelFromString(strings.ToLower(s))
	if !ok {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

type logWriter struct {
	pipe *io.PipeWriter
}

func (w logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if w.pipe != nil {
		w.pipe.Write(p)
	}
	return len(p), nil
}

// NewLogBackend creates the backend described by cfg.
func NewLogBackend(cfg LogConfig) (*LogBackend, error) {
	lvl, err := ParseLevel(cfg.DebugLevel)
	if err != nil {
		return nil, err
	}

	lb := &LogBackend{
		level:   lvl,
		loggers: make(map[string]slog.Logger),
	}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %v", err)
		}
		maxKB := int64(cfg.MaxBufferKB)
		if maxKB <= 0 {
			maxKB = 10 * 1024
		}
		maxFiles := cfg.MaxLogFiles
		if maxFiles <= 0 {
			maxFiles = 3
		}
		r, err := rotator.New(cfg.LogFile, maxKB, false, maxFiles)
		if err != nil {
			return nil, fmt.Errorf("failed to create file rotator: %v", err)
		}
		pr, pw := io.Pipe()
		lb.rotator, lb.pipe, lb.done = r, pw, make(chan struct{})
		go func() {
			defer close(lb.done)
			r.Run(pr)
		}()
	}

	lb.backend = slog.NewBackend(logWriter{pipe: lb.pipe})
	return lb, nil
}

// Logger returns the logger for subsystem, creating it on first use.
func (lb *LogBackend) Logger(subsystem string) slog.Logger {
	if lb == nil || lb.backend == nil {
		return slog.Disabled
	}
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if l, ok := lb.loggers[subsystem]; ok {
		return l
	}
	l := lb.backend.Logger(subsystem)
	l.SetLevel(lb.level)
	lb.loggers[subsystem] = l
	return l
}

// SetLevel changes the level of every logger handed out so far and of
// those created later.
func (lb *LogBackend) SetLevel(lvl slog.Level) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.level = lvl
	for _, l := range lb.loggers {
		l.SetLevel(lvl)
	}
}

// Close flushes and closes the log file, if any.
func (lb *LogBackend) Close() error {
	if lb == nil || lb.pipe == nil {
		return nil
	}
	lb.pipe.Close()
	<-lb.done
	return lb.rotator.Close()
}
