package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelDebug
)

// ParseLogLevel parses a log level string.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

// Logger writes leveled, timestamped lines to a shared sink. Component
// loggers created with Component share the sink and level but prefix
// their lines, so one log file interleaves the session machine, the
// balance service, and the claim pipeline readably.
type Logger struct {
	shared    *loggerSink
	component string
}

// loggerSink is the write end shared by a logger and its components.
type loggerSink struct {
	mu     sync.Mutex
	level  LogLevel
	out    io.Writer
	closer io.Closer
}

// NewLogger creates a logger writing to the given file path. A "~/"
// prefix expands to the user home directory. An empty path or an off
// level yields a logger that discards everything.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	if level == LogLevelOff || filePath == "" {
		return NullLogger(), nil
	}

	if strings.HasPrefix(filePath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		filePath = filepath.Join(home, filePath[2:])
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, err
	}

	// #nosec G304 -- log file path is from validated config
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &Logger{shared: &loggerSink{level: level, out: f, closer: f}}, nil
}

// NewLoggerTo creates a logger writing to an arbitrary sink. Used by
// tests to capture output.
func NewLoggerTo(level LogLevel, w io.Writer) *Logger {
	return &Logger{shared: &loggerSink{level: level, out: w}}
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{shared: &loggerSink{level: LogLevelOff}}
}

// Component returns a logger that prefixes every line with the
// component name, sharing this logger's sink and level.
func (l *Logger) Component(name string) *Logger {
	return &Logger{shared: l.shared, component: name}
}

// Close closes the underlying sink if it owns one.
func (l *Logger) Close() error {
	l.shared.mu.Lock()
	defer l.shared.mu.Unlock()
	if l.shared.closer != nil {
		err := l.shared.closer.Close()
		l.shared.closer = nil
		l.shared.out = nil
		return err
	}
	return nil
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	l.shared.mu.Lock()
	defer l.shared.mu.Unlock()
	return l.shared.level
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LogLevelDebug, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LogLevelError, format, args...)
}

// Writer returns an io.Writer that logs each write as one line at the
// given level.
func (l *Logger) Writer(level LogLevel) io.Writer {
	return &logWriter{logger: l, level: level}
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.shared.mu.Lock()
	defer l.shared.mu.Unlock()

	if l.shared.level == LogLevelOff || level > l.shared.level || l.shared.out == nil {
		return
	}

	prefix := ""
	if l.component != "" {
		prefix = l.component + ": "
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	levelStr := strings.ToUpper(level.String())
	msg := fmt.Sprintf(format, args...)

	_, _ = fmt.Fprintf(l.shared.out, "%s [%s] %s%s\n", timestamp, levelStr, prefix, msg)
}

// logWriter implements io.Writer for the logger.
type logWriter struct {
	logger *Logger
	level  LogLevel
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.logger.log(w.level, "%s", strings.TrimSpace(string(p)))
	return len(p), nil
}
