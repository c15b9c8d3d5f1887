package tui

import (
	"context"
	"sync"

	"github.com/jask/routepulse/internal/tracking"
)

// Feed is a tracking sink that keeps the most recent events for display.
type Feed struct {
	mu     sync.Mutex
	size   int
	events []tracking.Event
}

func NewFeed(size int) *Feed {
	if size < 1 {
		size = 1
	}
	return &Feed{size: size}
}

func (f *Feed) Record(_ context.Context, ev tracking.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	if over := len(f.events) - f.size; over > 0 {
		f.events = append([]tracking.Event(nil), f.events[over:]...)
	}
	return nil
}

// Recent returns the kept events, newest first.
func (f *Feed) Recent() []tracking.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]tracking.Event, len(f.events))
	for i, ev := range f.events {
		out[len(f.events)-1-i] = ev
	}
	return out
}
