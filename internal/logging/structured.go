// Package logging provides structured component logging for the console.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Configure sets the process-wide output and level.
// With pretty set, events are written through zerolog's console writer.
func Configure(w io.Writer, level Level, pretty bool) {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	mu.Lock()
	base = zerolog.New(w).Level(ParseLevel(string(level))).With().Timestamp().Logger()
	mu.Unlock()
}

// Discard silences all loggers created afterwards.
func Discard() {
	mu.Lock()
	base = zerolog.Nop()
	mu.Unlock()
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch Level(s) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger provides structured logging for one component.
// Loggers from New write through the process-wide sink current at emit
// time, so a later Configure redirects them too.
type Logger struct {
	component string
	fields    []kv
	fixed     *zerolog.Logger
}

type kv struct {
	key   string
	value interface{}
}

// New creates a new logger for a component
func New(component string) *Logger {
	return &Logger{component: component}
}

// NewWithWriter creates a logger bound to w regardless of the global setup.
func NewWithWriter(component string, w io.Writer) *Logger {
	zl := zerolog.New(w).With().Timestamp().Logger()
	return &Logger{component: component, fixed: &zl}
}

// With returns a child logger carrying an extra field
func (l *Logger) With(key string, value interface{}) *Logger {
	fields := make([]kv, len(l.fields), len(l.fields)+1)
	copy(fields, l.fields)
	return &Logger{
		component: l.component,
		fields:    append(fields, kv{key, value}),
		fixed:     l.fixed,
	}
}

// Component returns the component name
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) zl() *zerolog.Logger {
	var zl zerolog.Logger
	if l.fixed != nil {
		zl = *l.fixed
	} else {
		mu.RLock()
		zl = base
		mu.RUnlock()
	}
	ctx := zl.With().Str("component", l.component)
	for _, f := range l.fields {
		ctx = ctx.Interface(f.key, f.value)
	}
	out := ctx.Logger()
	return &out
}

func (l *Logger) emit(e *zerolog.Event, event string, extra map[string]interface{}, err error) {
	if err != nil {
		e = e.Err(err)
	}
	if len(extra) > 0 {
		e = e.Fields(extra)
	}
	e.Msg(event)
}

// Debug logs a debug event
func (l *Logger) Debug(event string, extra map[string]interface{}) {
	l.emit(l.zl().Debug(), event, extra, nil)
}

// Info logs an info event
func (l *Logger) Info(event string, extra map[string]interface{}) {
	l.emit(l.zl().Info(), event, extra, nil)
}

// Warn logs a warning event
func (l *Logger) Warn(event string, extra map[string]interface{}, err error) {
	l.emit(l.zl().Warn(), event, extra, err)
}

// Error logs an error event
func (l *Logger) Error(event string, extra map[string]interface{}, err error) {
	l.emit(l.zl().Error(), event, extra, err)
}

// TimedEvent logs an event with duration
func (l *Logger) TimedEvent(event string, start time.Time, extra map[string]interface{}) {
	l.emit(l.zl().Info().Int64("duration_ms", time.Since(start).Milliseconds()), event, extra, nil)
}
