package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger is the leveled logger every service receives.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
	Fatal(format string, v ...any)
	// With returns a logger that prefixes each message with component.
	With(component string) Logger
}

type LogConfig struct {
	// Output is "stderr" or "file".
	Output   string
	Level    string
	FilePath string
}

type levelLogger struct {
	out    *log.Logger
	level  Level
	prefix string
}

func NewLogger(cfg LogConfig) (Logger, error) {
	var w io.Writer
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		w = os.Stderr
	case "file":
		path := cfg.FilePath
		if path == "" {
			path = filepath.Join("logs", "cert_platform.log")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
	default:
		return nil, fmt.Errorf("invalid log output: %s (expected 'file' or 'stderr')", cfg.Output)
	}

	return &levelLogger{
		out:   log.New(w, "", log.LstdFlags),
		level: ParseLevel(cfg.Level),
	}, nil
}

// NewWriterLogger logs to w at the given level. Tests use it to capture output.
func NewWriterLogger(w io.Writer, level Level) Logger {
	return &levelLogger{out: log.New(w, "", 0), level: level}
}

func NewNoOpLogger() Logger {
	return &levelLogger{out: log.New(io.Discard, "", 0), level: FatalLevel}
}

func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func (l *levelLogger) With(component string) Logger {
	prefix := component
	if l.prefix != "" {
		prefix = l.prefix + "." + component
	}
	return &levelLogger{out: l.out, level: l.level, prefix: prefix}
}

func (l *levelLogger) Debug(format string, v ...any) { l.log(DebugLevel, format, v...) }
func (l *levelLogger) Info(format string, v ...any)  { l.log(InfoLevel, format, v...) }
func (l *levelLogger) Warn(format string, v ...any)  { l.log(WarnLevel, format, v...) }
func (l *levelLogger) Error(format string, v ...any) { l.log(ErrorLevel, format, v...) }

func (l *levelLogger) Fatal(format string, v ...any) {
	l.log(FatalLevel, format, v...)
	os.Exit(1)
}

func (l *levelLogger) log(level Level, format string, v ...any) {
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, v...)
	if l.prefix != "" {
		l.out.Printf("[%s] %s: %s", level, l.prefix, msg)
		return
	}
	l.out.Printf("[%s] %s", level, msg)
}
