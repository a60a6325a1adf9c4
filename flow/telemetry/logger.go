package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// PerformanceBand classifies a duration for structured logging, matching
// the external logger interface's excellent/good/acceptable/slow/
// very-slow bands.
type PerformanceBand string

const (
	PerfExcellent  PerformanceBand = "excellent"
	PerfGood       PerformanceBand = "good"
	PerfAcceptable PerformanceBand = "acceptable"
	PerfSlow       PerformanceBand = "slow"
	PerfVerySlow   PerformanceBand = "very_slow"
)

// ClassifyPerformance buckets d into a PerformanceBand.
func ClassifyPerformance(d time.Duration) PerformanceBand {
	switch {
	case d < 100*time.Millisecond:
		return PerfExcellent
	case d < 500*time.Millisecond:
		return PerfGood
	case d < time.Second:
		return PerfAcceptable
	case d < 5*time.Second:
		return PerfSlow
	default:
		return PerfVerySlow
	}
}

// Go deliberately does not expose a stable goroutine identifier, so each
// log call is tagged with a monotonically increasing sequence number
// instead, enough to correlate interleaved log lines without relying on
// runtime internals.
var logSeq atomic.Uint64

func nextLogSeq() uint64 { return logSeq.Add(1) }

// Logger is a leveled, per-component logger. Each component writes to
// its own file under dir (default "logs"), opened lazily on first use
// and kept open for the component's lifetime.
type Logger struct {
	mu      sync.Mutex
	dir     string
	writers map[string]zerolog.Logger
	files   map[string]*os.File
}

// NewLogger constructs a Logger writing under dir. An empty dir defaults
// to "logs".
func NewLogger(dir string) *Logger {
	if dir == "" {
		dir = "logs"
	}
	return &Logger{
		dir:     dir,
		writers: make(map[string]zerolog.Logger),
		files:   make(map[string]*os.File),
	}
}

// Component returns a logger scoped to the named component. Every call
// with the same name shares the same underlying file handle.
func (l *Logger) Component(name string) *ComponentLogger {
	return &ComponentLogger{base: l, component: name}
}

func (l *Logger) writerFor(component string) zerolog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	if zl, ok := l.writers[component]; ok {
		return zl
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.writers[component] = zl
		return zl
	}

	path := filepath.Join(l.dir, fmt.Sprintf("%s.log", component))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.writers[component] = zl
		return zl
	}

	l.files[component] = f
	zl := zerolog.New(f).With().Timestamp().Logger()
	l.writers[component] = zl
	return zl
}

// Close closes every open per-component log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ComponentLogger is a Logger bound to one component name. It satisfies
// flow.Logger's Warn method structurally, so a *ComponentLogger can be
// passed directly to flow.WithLogger / flow.WithGraphLogger without the
// telemetry package ever importing the flow package.
type ComponentLogger struct {
	base      *Logger
	component string
}

func (c *ComponentLogger) emit(level zerolog.Level, msg string, fields map[string]interface{}) {
	zl := c.base.writerFor(c.component)
	ev := zl.WithLevel(level).
		Str("component", c.component).
		Uint64("goroutine_id", nextLogSeq())
	if fields != nil {
		ev = ev.Interface("data", fields)
	}
	ev.Msg(msg)
}

func (c *ComponentLogger) Debug(msg string, fields map[string]interface{}) {
	c.emit(zerolog.DebugLevel, msg, fields)
}

func (c *ComponentLogger) Info(msg string, fields map[string]interface{}) {
	c.emit(zerolog.InfoLevel, msg, fields)
}

func (c *ComponentLogger) Warn(msg string, fields map[string]interface{}) {
	c.emit(zerolog.WarnLevel, msg, fields)
}

func (c *ComponentLogger) Error(msg string, fields map[string]interface{}) {
	c.emit(zerolog.ErrorLevel, msg, fields)
}

// Critical logs at the highest severity without terminating the process
// (zerolog's Fatal/Panic convenience methods exit or panic; WithLevel
// does neither, so Critical is safe to call from library code).
func (c *ComponentLogger) Critical(msg string, fields map[string]interface{}) {
	c.emit(zerolog.Level(5), msg, fields) // zerolog.PanicLevel value, used non-fatally
}

// Performance logs d's PerformanceBand as a structured field alongside
// msg, rather than folding the classification into prose.
func (c *ComponentLogger) Performance(msg string, d time.Duration, fields map[string]interface{}) {
	merged := map[string]interface{}{"duration_ms": d.Milliseconds(), "performance": string(ClassifyPerformance(d))}
	for k, v := range fields {
		merged[k] = v
	}
	c.emit(zerolog.InfoLevel, msg, merged)
}
