package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Options configure the process-wide log sink shared by every component logger.
type Options struct {
	// Level is one of debug, info, warn or error.
	Level string
	// Format is json or console.
	Format string
	// File receives log output. Empty means stderr; stdout is reserved for the
	// stdio transport and is never used.
	File string
	// Timestamps adds the record time to each entry.
	Timestamps bool
	// Caller adds the source file and line to each entry.
	Caller bool
}

// DefaultOptions returns info level JSON logging to stderr.
func DefaultOptions() Options {
	return Options{Level: "info", Format: "json", Timestamps: true}
}

var (
	// Global session ID for the current process
	sessionID     string
	sessionIDOnce sync.Once

	sinkMu  sync.RWMutex
	handler slog.Handler = newHandler(os.Stderr, DefaultOptions())
	logFile *os.File
	logPath string
)

func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// Setup installs the sink described by opts. If the log file cannot be opened
// the sink falls back to stderr and the error is returned so the caller can
// report it.
func Setup(opts Options) error {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	closeFileLocked()

	if opts.File == "" {
		handler = newHandler(os.Stderr, opts)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0750); err != nil {
		handler = newHandler(os.Stderr, opts)
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		handler = newHandler(os.Stderr, opts)
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logFile = file
	logPath = opts.File
	handler = newHandler(file, opts)
	return nil
}

// Shutdown closes the log file, if any, and reverts to stderr. Safe to call
// multiple times.
func Shutdown() error {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	err := closeFileLocked()
	handler = newHandler(os.Stderr, DefaultOptions())
	return err
}

func closeFileLocked() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	logPath = ""
	return err
}

func currentHandler() slog.Handler {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return handler
}

func newHandler(w io.Writer, opts Options) slog.Handler {
	hopts := &slog.HandlerOptions{
		Level:     ParseLevel(opts.Level),
		AddSource: opts.Caller,
	}
	if !opts.Timestamps {
		hopts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		}
	}
	if strings.EqualFold(opts.Format, "console") || strings.EqualFold(opts.Format, "text") {
		return slog.NewTextHandler(w, hopts)
	}
	return slog.NewJSONHandler(w, hopts)
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "critical":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger is a component-scoped logger writing to the process-wide sink.
// Loggers created before Setup pick up the new sink on their next call.
type Logger struct {
	component string
	attrs     []any
}

// NewLogger creates a logger tagged with component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// With returns a copy of the logger that adds the given key/value pairs to
// every entry.
func (l *Logger) With(kv ...any) *Logger {
	attrs := make([]any, 0, len(l.attrs)+len(kv))
	attrs = append(attrs, l.attrs...)
	attrs = append(attrs, kv...)
	return &Logger{component: l.component, attrs: attrs}
}

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level slog.Level) bool {
	return currentHandler().Enabled(context.Background(), level)
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, kv ...any) {
	h := currentHandler()
	if !h.Enabled(ctx, level) {
		return
	}

	// skip runtime.Callers, log and the exported wrapper
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add("component", l.component, "session_id", getSessionID())
	r.Add(l.attrs...)
	r.Add(kv...)
	_ = h.Handle(ctx, r)
}

// Debug logs msg with structured key/value pairs at debug level.
func (l *Logger) Debug(msg string, kv ...any) { l.log(context.Background(), slog.LevelDebug, msg, kv...) }

// Info logs msg with structured key/value pairs at info level.
func (l *Logger) Info(msg string, kv ...any) { l.log(context.Background(), slog.LevelInfo, msg, kv...) }

// Warn logs msg with structured key/value pairs at warn level.
func (l *Logger) Warn(msg string, kv ...any) { l.log(context.Background(), slog.LevelWarn, msg, kv...) }

// Error logs msg with structured key/value pairs at error level.
func (l *Logger) Error(msg string, kv ...any) { l.log(context.Background(), slog.LevelError, msg, kv...) }

// Writer returns the writer behind the current sink.
func (l *Logger) Writer() io.Writer {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	if logFile != nil {
		return logFile
	}
	return os.Stderr
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return getSessionID()
}

// GetSessionID returns the process-wide session ID that tags every entry.
func GetSessionID() string {
	return getSessionID()
}

// LogPath returns the path of the current log file, or "" when logging to
// stderr.
func LogPath() string {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return logPath
}
