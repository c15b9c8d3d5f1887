// Package visibility tracks whether the host surface is in the foreground and
// whether it has ever lost visibility. This happens when the user switches
// tabs or windows, minimizes the terminal, etc.
package visibility

import (
	"log/slog"
	"sync"
)

// API describes one visibility signalling flavour offered by a host.
type API struct {
	Name       string
	Supported  bool
	HiddenFlag string
	EventName  string
}

var (
	Global      = API{Name: "global", Supported: true, HiddenFlag: "hidden", EventName: "visibilitychange"}
	Webkit      = API{Name: "webkit", Supported: true, HiddenFlag: "webkitHidden", EventName: "webkitvisibilitychange"}
	Mozilla     = API{Name: "mozilla", Supported: true, HiddenFlag: "mozHidden", EventName: "mozvisibilitychange"}
	Unsupported = API{Name: "unsupported"}
)

// Document is the host surface the tracker observes.
type Document interface {
	// Flag returns the value of the named hidden flag. ok is false when the
	// host does not expose that flag at all.
	Flag(name string) (hidden bool, ok bool)
	// Subscribe registers fn for the named notification and returns the
	// function that removes it.
	Subscribe(event string, fn func()) (unsubscribe func())
}

// DetectAPI returns the best visibility API the document supports, in order
// of preference: standard, webkit, mozilla, unsupported.
func DetectAPI(doc Document) API {
	if doc == nil {
		return Unsupported
	}
	for _, api := range []API{Global, Webkit, Mozilla} {
		if _, ok := doc.Flag(api.HiddenFlag); ok {
			return api
		}
	}
	return Unsupported
}

type Option func(*Tracker)

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// Tracker is the process-wide visibility state. It lives from construction
// until Close. lostVisibility is sticky: once set it is never cleared.
type Tracker struct {
	mu          sync.RWMutex
	doc         Document
	api         API
	visible     bool
	lost        bool
	closed      bool
	unsubscribe func()
	log         *slog.Logger
}

func NewTracker(doc Document, opts ...Option) *Tracker {
	t := &Tracker{
		doc:     doc,
		api:     DetectAPI(doc),
		visible: true,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if !t.api.Supported {
		t.log.Debug("visibility api unsupported; assuming always visible")
		return t
	}
	t.handleChange()
	t.unsubscribe = doc.Subscribe(t.api.EventName, t.handleChange)
	t.log.Debug("visibility tracking started", "api", t.api.Name, "event", t.api.EventName)
	return t
}

func (t *Tracker) API() API {
	return t.api
}

func (t *Tracker) Visible() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.visible
}

// LostVisibility reports whether the surface was ever hidden.
func (t *Tracker) LostVisibility() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lost
}

// Close removes the subscription. Notifications after Close are ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (t *Tracker) handleChange() {
	hidden, _ := t.doc.Flag(t.api.HiddenFlag)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.visible = !hidden
	if hidden && !t.lost {
		t.lost = true
		t.log.Debug("visibility lost")
	}
}
