package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger defines a minimal, printf-style logging contract shared by every
// package in the module.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

var (
	sharedSink *sink
	sinkOnce   sync.Once
)

type sink struct {
	mu    sync.Mutex
	out   *log.Logger
	level Level
}

func getSink() *sink {
	sinkOnce.Do(func() {
		sharedSink = &sink{level: LevelInfo}
		var w io.Writer = os.Stderr
		if home, err := os.UserHomeDir(); err == nil {
			path := filepath.Join(home, "toolchat-debug.log")
			if file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
				w = file
			}
		}
		sharedSink.out = log.New(w, "", 0)
	})
	return sharedSink
}

// SetLevel sets the minimum level emitted by component loggers.
func SetLevel(level Level) {
	s := getSink()
	s.mu.Lock()
	s.level = level
	s.mu.Unlock()
}

type componentLogger struct {
	component string
	sink      *sink
}

// NewComponentLogger returns the shared debug-log logger scoped to a
// component name.
func NewComponentLogger(component string) Logger {
	return &componentLogger{component: component, sink: getSink()}
}

func (l *componentLogger) log(level Level, format string, args ...any) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if level < l.sink.level || l.sink.out == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.sink.out.Printf("[%s] [%s] [%s] %s",
		time.Now().Format("2006-01-02 15:04:05.000"), level, l.component, msg)
}

func (l *componentLogger) Debug(format string, args ...any) {
	l.log(LevelDebug, format, args...)
}

func (l *componentLogger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

func (l *componentLogger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

func (l *componentLogger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}
