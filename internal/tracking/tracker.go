package tracking

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Sink stores or forwards events.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

type Option func(*Tracker)

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

func WithSessionID(id string) Option {
	return func(t *Tracker) {
		if id != "" {
			t.session = id
		}
	}
}

// WithTimeout bounds each sink write.
func WithTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// Tracker stamps events with an id and the session id and hands them to
// every sink. Sink failures are logged and dropped.
type Tracker struct {
	sinks   []Sink
	session string
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger
}

func New(sinks []Sink, opts ...Option) *Tracker {
	t := &Tracker{
		sinks:   sinks,
		session: uuid.NewString(),
		timeout: 2 * time.Second,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) SessionID() string {
	return t.session
}

// TrackRoute delivers a route event.
func (t *Tracker) TrackRoute(ev Event) {
	t.deliver(ev)
}

// TrackPage delivers a pageViewed event for the given page and title.
func (t *Tracker) TrackPage(page, title string) {
	t.deliver(Event{Name: PageViewed, Page: page, Title: title, ClientTime: t.now()})
}

func (t *Tracker) deliver(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.SessionID == "" {
		ev.SessionID = t.session
	}
	if ev.ClientTime.IsZero() {
		ev.ClientTime = t.now()
	}
	for _, s := range t.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		if err := s.Record(ctx, ev); err != nil {
			t.log.Warn("telemetry sink failed", "event", ev.Name, "route", ev.RouteName, "err", err)
		}
		cancel()
	}
}
