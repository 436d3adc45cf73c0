package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zerolog for application logging.
type Logger struct {
	zerolog.Logger
	rotator     *lumberjack.Logger
	broadcaster *LogBroadcaster
}

// Config holds logger configuration.
type Config struct {
	Level           string
	Format          string // "console" or "json"
	Path            string // directory for log files
	MaxSizeMB       int    // max size in MB before rotation (default: 10)
	MaxBackups      int    // max number of old log files to keep (default: 5)
	MaxAgeDays      int    // max age in days to keep old files (default: 30)
	Compress        bool   // compress rotated files (default: true)
	EnableStreaming bool   // enable log streaming with ring buffer
	BufferSize      int    // ring buffer size for recent logs (default: 1000)
}

// New creates a new logger instance.
func New(cfg Config) *Logger {
	consoleOutput := newConsoleOutput(cfg.Format)
	level := parseLevel(cfg.Level)

	output := consoleOutput
	var rotator *lumberjack.Logger
	var broadcaster *LogBroadcaster

	if cfg.Path != "" {
		rotator, output = setupFileLogging(cfg, consoleOutput)
	}

	if cfg.EnableStreaming {
		broadcaster = NewLogBroadcaster(nil, cfg.BufferSize)
		output = io.MultiWriter(output, broadcaster)
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: zlog, rotator: rotator, broadcaster: broadcaster}
}

func newConsoleOutput(format string) io.Writer {
	if format == "json" {
		return os.Stdout
	}
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
}

func setupFileLogging(cfg Config, consoleOutput io.Writer) (*lumberjack.Logger, io.Writer) {
	if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "logger: failed to create log directory %s: %v\n", cfg.Path, err)
		return nil, consoleOutput
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Path, "matchday.log"),
		MaxSize:    positiveOrDefault(cfg.MaxSizeMB, 10),
		MaxBackups: positiveOrDefault(cfg.MaxBackups, 5),
		MaxAge:     positiveOrDefault(cfg.MaxAgeDays, 30),
		Compress:   cfg.Compress,
		LocalTime:  true,
	}

	fileWriter := zerolog.ConsoleWriter{
		Out:        rotator,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}

	return rotator, io.MultiWriter(consoleOutput, fileWriter)
}

func positiveOrDefault(val, defaultVal int) int {
	if val <= 0 {
		return defaultVal
	}
	return val
}

// Close closes the log file if one is open.
func (l *Logger) Close() error {
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// GetRecentLogs returns buffered log entries from the broadcaster.
func (l *Logger) GetRecentLogs() []LogEntry {
	if l.broadcaster == nil {
		return nil
	}
	return l.broadcaster.GetRecentLogs()
}

// SetBroadcastHub sets the hub used to stream log entries over the websocket.
func (l *Logger) SetBroadcastHub(hub Broadcaster) {
	if l.broadcaster != nil {
		l.broadcaster.SetHub(hub)
	}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
