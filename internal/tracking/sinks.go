package tracking

import (
	"context"
	"log/slog"
	"sync"
)

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Record(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// Last returns the most recent event, if any.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// LogSink writes each event as one structured log record.
type LogSink struct {
	log   *slog.Logger
	level slog.Level
}

func NewLogSink(l *slog.Logger, level slog.Level) *LogSink {
	if l == nil {
		l = slog.Default()
	}
	return &LogSink{log: l, level: level}
}

func (s *LogSink) Record(ctx context.Context, ev Event) error {
	fields := ev.Fields()
	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		if k == "event" {
			continue
		}
		attrs = append(attrs, slog.Any(k, v))
	}
	s.log.LogAttrs(ctx, s.level, ev.Name, attrs...)
	return nil
}
