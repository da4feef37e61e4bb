// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package pollio

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// LogLevel mirrors the syslog-derived severities logiface uses, trimmed to
// four levels.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
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
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

func (l LogLevel) logifaceLevel() logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}

// LogEntry is a single structured record describing a mask transition or
// wait-loop event. Category names the component that produced it (the
// Pollee mutation methods use "pollee"); Delta and Woken are populated by
// the Pollee mutation methods, and FD and Err by callers logging about a
// file descriptor or a failure worth recording rather than just returning
// (cmd/pollecho sets both).
type LogEntry struct {
	Level    LogLevel
	Category string
	Message  string
	Err      error
	Delta    Events
	Woken    int
	FD       int
}

// Logger is the structured logging interface every ambient component in this
// package accepts via the WithLogger option. Implementations must tolerate a
// nil Err and a zero Delta/Woken/FD; those simply mean "not applicable to
// this entry", not sentinel values.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

// NewNoopLogger returns a Logger that discards everything and never formats
// an entry; it is the zero-overhead default used when WithLogger is omitted.
func NewNoopLogger() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) Log(LogEntry)            {}
func (noopLogger) IsEnabled(LogLevel) bool { return false }

// WriterLogger formats entries as single-line text onto an io.Writer. It
// exists for tests and quick diagnostics where pulling in the logiface
// machinery is unwarranted.
type WriterLogger struct {
	level atomic.Int32
	mu    sync.Mutex
	out   io.Writer
}

// NewWriterLogger creates a WriterLogger at the given minimum level.
func NewWriterLogger(level LogLevel, out io.Writer) *WriterLogger {
	l := &WriterLogger{out: out}
	l.level.Store(int32(level))
	return l
}

func (l *WriterLogger) SetLevel(level LogLevel) { l.level.Store(int32(level)) }

func (l *WriterLogger) IsEnabled(level LogLevel) bool {
	return int32(level) >= l.level.Load()
}

func (l *WriterLogger) Log(entry LogEntry) {
	if !l.IsEnabled(entry.Level) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "[%s] [%-10s] %s", entry.Level, entry.Category, entry.Message)
	if entry.Delta != 0 {
		fmt.Fprintf(l.out, " delta=%s", entry.Delta)
	}
	if entry.Woken != 0 {
		fmt.Fprintf(l.out, " woken=%d", entry.Woken)
	}
	if entry.FD != 0 {
		fmt.Fprintf(l.out, " fd=%d", entry.FD)
	}
	if entry.Err != nil {
		fmt.Fprintf(l.out, " err=%v", entry.Err)
	}
	fmt.Fprintln(l.out)
}

// pollioEvent is the logiface.Event implementation backing LogifaceLogger. It
// holds exactly the fields LogEntry can carry, plus the free-form key/value
// pairs a Builder call attaches through Str/Int, as required by the Event
// contract.
type pollioEvent struct {
	logiface.UnimplementedEvent

	level   logiface.Level
	message string
	err     error
	fields  []pollioField
}

type pollioField struct {
	key string
	val any
}

func (e *pollioEvent) Level() logiface.Level { return e.level }

func (e *pollioEvent) AddField(key string, val any) {
	e.fields = append(e.fields, pollioField{key: key, val: val})
}

func (e *pollioEvent) AddMessage(msg string) bool {
	e.message = msg
	return true
}

func (e *pollioEvent) AddError(err error) bool {
	e.err = err
	return true
}

func (e *pollioEvent) AddString(key string, val string) bool {
	e.AddField(key, val)
	return true
}

func (e *pollioEvent) AddInt(key string, val int) bool {
	e.AddField(key, val)
	return true
}

func (e *pollioEvent) reset() {
	e.level = logiface.LevelDisabled
	e.message = ""
	e.err = nil
	e.fields = e.fields[:0]
}

var pollioEventPool = sync.Pool{New: func() any { return new(pollioEvent) }}

type pollioEventFactory struct{}

func (pollioEventFactory) NewEvent(level logiface.Level) *pollioEvent {
	e := pollioEventPool.Get().(*pollioEvent)
	e.level = level
	return e
}

type pollioEventReleaser struct{}

func (pollioEventReleaser) ReleaseEvent(e *pollioEvent) {
	e.reset()
	pollioEventPool.Put(e)
}

// lineWriter serializes a pollioEvent as a single JSON line. It is
// deliberately simpler than a full encoder: this package's log volume is
// low (mask transitions, not request traffic), so a hand-rolled writer
// matching the shape of the teacher's own JSON branch is enough.
type lineWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *lineWriter) Write(e *pollioEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, `{"time":%q,"level":%q`, time.Now().Format(time.RFC3339Nano), levelName(e.level))
	if e.message != "" {
		fmt.Fprintf(w.out, `,"message":%q`, e.message)
	}
	if e.err != nil {
		fmt.Fprintf(w.out, `,"error":%q`, e.err.Error())
	}
	for _, f := range e.fields {
		if s, ok := f.val.(string); ok {
			fmt.Fprintf(w.out, `,%q:%q`, f.key, s)
		} else {
			fmt.Fprintf(w.out, `,%q:%v`, f.key, f.val)
		}
	}
	fmt.Fprintln(w.out, "}")
	return nil
}

func levelName(l logiface.Level) string {
	switch l {
	case logiface.LevelDebug:
		return "debug"
	case logiface.LevelInformational:
		return "info"
	case logiface.LevelWarning:
		return "warn"
	case logiface.LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// LogifaceLogger adapts this package's Logger interface onto a
// logiface.Logger, so that a process already standardized on logiface for
// everything else can point pollio's ambient logging at the same sinks.
type LogifaceLogger struct {
	inner *logiface.Logger[*pollioEvent]
}

// NewLogifaceLogger builds a LogifaceLogger writing JSON lines to out at or
// above minLevel.
func NewLogifaceLogger(out io.Writer, minLevel LogLevel) *LogifaceLogger {
	if out == nil {
		out = os.Stderr
	}
	w := &lineWriter{out: out}
	l := logiface.New[*pollioEvent](
		logiface.WithLevel[*pollioEvent](minLevel.logifaceLevel()),
		logiface.WithEventFactory[*pollioEvent](pollioEventFactory{}),
		logiface.WithEventReleaser[*pollioEvent](pollioEventReleaser{}),
		logiface.WithWriter[*pollioEvent](logiface.WriterFunc[*pollioEvent](w.Write)),
	)
	return &LogifaceLogger{inner: l}
}

// IsEnabled reports whether level is at or above the logger's configured
// threshold, using syslog ordering (lower numeric value is more severe).
func (l *LogifaceLogger) IsEnabled(level LogLevel) bool {
	return level.logifaceLevel() <= l.inner.Level()
}

func (l *LogifaceLogger) Log(entry LogEntry) {
	b := l.inner.Build(entry.Level.logifaceLevel())
	if b == nil {
		return
	}
	b = b.Str("category", entry.Category)
	if entry.Delta != 0 {
		b = b.Str("delta", entry.Delta.String())
	}
	if entry.Woken != 0 {
		b = b.Int("woken", entry.Woken)
	}
	if entry.FD != 0 {
		b = b.Int("fd", entry.FD)
	}
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	b.Log(entry.Message)
}
