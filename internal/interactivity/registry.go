// Package interactivity tracks which named reporters (critical regions) are
// interactive and resolves route subscriptions once every region a route
// depends on has reported.
package interactivity

import (
	"context"
	"log/slog"
	"sync"
)

// Probe describes what a route waits for. Probes are compared by identity,
// so implementations should be pointers.
type Probe interface {
	CriticalRegionNames() []string
}

// Checker is implemented by probes that carry an extra readiness check.
type Checker interface {
	IsInteractive() bool
}

// Subscription resolves once its probe is satisfied. It never resolves after
// being released.
type Subscription struct {
	probe Probe
	done  chan struct{}
	once  sync.Once
}

func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) Resolved() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the subscription resolves or ctx ends.
func (s *Subscription) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Subscription) resolve() {
	s.once.Do(func() { close(s.done) })
}

type Option func(*Registry)

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// Registry is safe for concurrent use. Probe callbacks run with the registry
// lock held and must not call back into it.
type Registry struct {
	mu        sync.Mutex
	reporters map[string]int
	subs      map[Probe]*Subscription
	log       *slog.Logger
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		reporters: make(map[string]int),
		subs:      make(map[Probe]*Subscription),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) DidReporterBecomeInteractive(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reporters[name]++
	r.log.Debug("reporter interactive", "reporter", name, "count", r.reporters[name])
	r.checkLocked()
}

func (r *Registry) DidReporterBecomeNonInteractive(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reporters[name] <= 1 {
		delete(r.reporters, name)
	} else {
		r.reporters[name]--
	}
	r.log.Debug("reporter non-interactive", "reporter", name, "count", r.reporters[name])
}

func (r *Registry) IsReporterInteractive(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reporters[name] > 0
}

// SubscribeRoute returns a subscription for probe. A previous subscription
// for the same probe is released first. An already satisfied probe resolves
// immediately.
func (r *Registry) SubscribeRoute(probe Probe) *Subscription {
	sub := &Subscription{probe: probe, done: make(chan struct{})}
	if probe == nil {
		sub.resolve()
		return sub
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, probe)
	if r.satisfiedLocked(probe) {
		sub.resolve()
		return sub
	}
	r.subs[probe] = sub
	r.log.Debug("route subscribed", "regions", probe.CriticalRegionNames())
	return sub
}

// UnsubscribeRoute releases any subscription held for probe. Idempotent.
func (r *Registry) UnsubscribeRoute(probe Probe) {
	if probe == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, probe)
}

// Recheck re-evaluates pending subscriptions, for probes whose readiness
// check depends on state the registry does not observe.
func (r *Registry) Recheck() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkLocked()
}

// Pending returns the number of unresolved subscriptions.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *Registry) checkLocked() {
	for probe, sub := range r.subs {
		if r.satisfiedLocked(probe) {
			delete(r.subs, probe)
			sub.resolve()
		}
	}
}

func (r *Registry) satisfiedLocked(probe Probe) bool {
	for _, name := range probe.CriticalRegionNames() {
		if r.reporters[name] <= 0 {
			return false
		}
	}
	if c, ok := probe.(Checker); ok && !c.IsInteractive() {
		return false
	}
	return true
}
