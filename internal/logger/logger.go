package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls how the default logger writes.
type Options struct {
	Level    string // debug, info, warn, error
	Format   string // console or json
	FilePath string // optional; log lines are also appended here
}

var (
	mu            sync.RWMutex
	defaultLogger zerolog.Logger
	logFile       *os.File
	once          sync.Once
)

// Init initializes the default logger with a console writer on stderr at info level.
// It ensures that the logger is initialized only once.
func Init() {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339
		mu.Lock()
		defaultLogger = zerolog.New(consoleWriter(os.Stderr)).
			Level(zerolog.InfoLevel).
			With().Timestamp().Logger()
		mu.Unlock()
	})
}

// Configure replaces the default logger according to opts.
func Configure(opts Options) error {
	Init()

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	var out io.Writer
	switch strings.ToLower(opts.Format) {
	case "", "console":
		out = consoleWriter(os.Stderr)
	case "json":
		out = os.Stderr
	default:
		return fmt.Errorf("unknown log format %q (want console or json)", opts.Format)
	}

	var file *os.File
	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err = os.OpenFile(opts.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", opts.FilePath, err)
		}
		out = zerolog.MultiLevelWriter(out, file)
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = file
	defaultLogger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}

// SetOutput points the default logger at w with JSON output. Used by tests.
func SetOutput(w io.Writer, level zerolog.Level) {
	Init()
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ParseLevel maps a config level name to a zerolog level. Empty means info.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q: %w", name, err)
	}
	return level, nil
}

// Get returns the initialized default logger.
func Get() zerolog.Logger {
	Init()
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// For returns a child logger tagged with a component name.
func For(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

// Info logs an informational message using the default logger.
func Info(msg string, args ...any) {
	l := Get()
	l.Info().Fields(args).Msg(msg)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...any) {
	l := Get()
	l.Warn().Fields(args).Msg(msg)
}

// Error logs an error message using the default logger.
func Error(msg string, err error, args ...any) {
	l := Get()
	l.Error().Err(err).Fields(args).Msg(msg)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...any) {
	l := Get()
	l.Debug().Fields(args).Msg(msg)
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
}
