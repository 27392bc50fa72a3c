// Package eventlog carries the human-readable backup log: every event is
// stamped once and delivered to all sinks, such as the display history and
// the durable log file.
package eventlog

import (
	"fmt"
	"sync"
	"time"
)

// Severity classifies an event for display.
type Severity int

const (
	Info Severity = iota
	Success
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// TimeLayout is the timestamp format used in rendered log lines.
const TimeLayout = "2006-01-02 15:04:05"

// Event is a single log line.
type Event struct {
	Time     time.Time
	Message  string
	Severity Severity
}

// Line renders the event as "[YYYY-MM-DD HH:MM:SS] message".
func (e Event) Line() string {
	return "[" + e.Time.Format(TimeLayout) + "] " + e.Message
}

// Sink receives events. Write must be safe for concurrent use.
type Sink interface {
	Write(Event) error
}

// Logger fans events out to a dynamic set of sinks.
type Logger struct {
	mu    sync.RWMutex
	sinks []Sink
	now   func() time.Time

	// onSinkError is called when a sink rejects an event.
	onSinkError func(Sink, error)
}

// New creates a Logger delivering to sinks.
func New(sinks ...Sink) *Logger {
	return &Logger{sinks: sinks, now: time.Now}
}

// OnSinkError registers a callback for sink write failures.
func (l *Logger) OnSinkError(fn func(Sink, error)) {
	l.mu.Lock()
	l.onSinkError = fn
	l.mu.Unlock()
}

// Attach adds a sink.
func (l *Logger) Attach(s Sink) {
	l.mu.Lock()
	l.sinks = append(l.sinks, s)
	l.mu.Unlock()
}

// Detach removes a previously attached sink.
func (l *Logger) Detach(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, cur := range l.sinks {
		if cur == s {
			l.sinks = append(l.sinks[:i:i], l.sinks[i+1:]...)
			return
		}
	}
}

// Log stamps msg with the current time and delivers it to every sink.
func (l *Logger) Log(sev Severity, msg string) Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ev := Event{Time: l.now(), Message: msg, Severity: sev}
	for _, s := range l.sinks {
		if err := s.Write(ev); err != nil && l.onSinkError != nil {
			l.onSinkError(s, err)
		}
	}
	return ev
}

func (l *Logger) Infof(format string, args ...any) Event {
	return l.Log(Info, fmt.Sprintf(format, args...))
}

func (l *Logger) Successf(format string, args ...any) Event {
	return l.Log(Success, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) Event {
	return l.Log(Warning, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) Event {
	return l.Log(Error, fmt.Sprintf(format, args...))
}
