// Package monitor decides when a transition into a route begins and when the
// route has become interactive, and emits the matching telemetry.
//
// A Monitor belongs to one route view. The host routing system calls
// WillTransition and DidTransition for every route on the path of a
// transition; only the route that is the final destination (the leaf) reports.
// Completion waits for the view's critical regions through the interactivity
// registry. Each wait carries a generation number, so a newer transition or
// Cancel silently invalidates an older wait.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jask/routepulse/internal/interactivity"
	"github.com/jask/routepulse/internal/runloop"
	"github.com/jask/routepulse/internal/tracking"
)

// Transition is a navigation into TargetName.
type Transition struct {
	TargetName string
	URL        string
}

// View is the capability a route exposes to be monitored. Views may also
// implement IsInteractive() bool as an extra readiness check.
type View interface {
	FullRouteName() string
	CriticalRegionNames() []string
}

type interactiveView interface {
	IsInteractive() bool
}

type Registry interface {
	SubscribeRoute(p interactivity.Probe) *interactivity.Subscription
	UnsubscribeRoute(p interactivity.Probe)
}

type Emitter interface {
	TrackRoute(ev tracking.Event)
}

type Visibility interface {
	LostVisibility() bool
}

// Loop is the host's single-threaded task queue.
type Loop interface {
	Schedule(fn func())
	AfterRender(fn func()) *runloop.Task
}

// Deps are the long-lived services a monitor reports through. Visibility
// may be nil, in which case lostVisibility is always false.
type Deps struct {
	Registry   Registry
	Tracker    Emitter
	Visibility Visibility
	Launch     *LaunchState
	Loop       Loop
}

type Phase string

const (
	PhaseStarted   Phase = "TransitionStarted"
	PhaseCompleted Phase = "TransitionCompleted"
)

type State int

const (
	Idle State = iota
	TransitionStarted
	MonitoringInteractivity
	// TransitionCompleted is held until the next transition or Cancel.
	TransitionCompleted
)

func (s State) String() string {
	switch s {
	case TransitionStarted:
		return "TransitionStarted"
	case MonitoringInteractivity:
		return "MonitoringInteractivity"
	case TransitionCompleted:
		return "TransitionCompleted"
	default:
		return "Idle"
	}
}

type Option func(*Monitor)

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.log = l
		}
	}
}

type Monitor struct {
	view View
	deps Deps
	now  func() time.Time
	log  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	latest       *Transition
	startedAt    time.Time
	gen          uint64
	active       bool
	probe        interactivity.Probe
	stopWait     context.CancelFunc
	pendingStart *runloop.Task
	state        State
	destroyed    bool
}

// New creates the monitor for view. When deps.Launch is nil the monitor
// gets a private launch state anchored at creation time.
func New(view View, deps Deps, opts ...Option) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		view:   view,
		deps:   deps,
		now:    time.Now,
		log:    slog.Default(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.deps.Launch == nil {
		m.deps.Launch = NewLaunchState(m.now())
	}
	m.log = m.log.With("route", view.FullRouteName())
	return m
}

func (m *Monitor) RouteName() string {
	return m.view.FullRouteName()
}

// IsLeafRoute reports whether t, or the latest observed transition when t is
// nil, ends at this monitor's view.
func (m *Monitor) IsLeafRoute(t *Transition) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isLeafLocked(t)
}

func (m *Monitor) isLeafLocked(t *Transition) bool {
	if t == nil {
		t = m.latest
	}
	return t != nil && t.TargetName == m.view.FullRouteName()
}

// WillTransition records t as the latest transition and supersedes any live
// wait. For a leaf transition it emits the transition-started event; a
// non-leaf transition leaves the monitor idle, since the view is no longer
// the destination.
func (m *Monitor) WillTransition(t *Transition) {
	if t == nil {
		return
	}
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.latest = t
	m.supersedeLocked()
	if !m.isLeafLocked(t) {
		if m.state != TransitionCompleted {
			m.state = Idle
		}
		m.mu.Unlock()
		return
	}
	m.startedAt = m.now()
	m.state = TransitionStarted
	m.mu.Unlock()

	m.SendTransitionEvent(PhaseStarted, t.TargetName, nil)
}

// DidTransition handles the host's transition-complete notification. t may
// be nil, in which case the latest transition decides leaf-ness. Leaf
// transitions defer their completion work until the next render settles.
// It always returns true so the host continues its default handling.
func (m *Monitor) DidTransition(t *Transition) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return true
	}
	if t != nil {
		m.latest = t
	}
	if !m.isLeafLocked(nil) {
		return true
	}
	m.supersedeLocked()
	if m.state != TransitionStarted {
		m.startedAt = m.now()
		m.state = TransitionStarted
	}
	gen := m.gen
	m.pendingStart = m.deps.Loop.AfterRender(func() { m.afterRender(gen) })
	return true
}

func (m *Monitor) afterRender(gen uint64) {
	m.mu.Lock()
	if m.destroyed || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.pendingStart = nil
	critical := len(m.view.CriticalRegionNames()) > 0
	m.mu.Unlock()

	if critical {
		m.MonitorInteractivity()
		return
	}
	m.sendTransitionCompleteEvent()
}

// MonitorInteractivity subscribes to the registry for the view's critical
// regions and emits the completion event once they are all interactive,
// unless the wait was superseded or cancelled first.
func (m *Monitor) MonitorInteractivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.supersedeLocked()
	p := newProbe(m.view)
	m.probe = p
	m.active = true
	m.state = MonitoringInteractivity
	gen := m.gen
	ctx, stop := context.WithCancel(m.ctx)
	m.stopWait = stop

	sub := m.deps.Registry.SubscribeRoute(p)
	m.log.Debug("monitoring interactivity", "regions", p.CriticalRegionNames(), "generation", gen)

	m.wg.Add(1)
	go m.await(ctx, gen, sub)
}

// await exits when the subscription resolves or when its wait is stopped by
// supersession, Cancel or Destroy.
func (m *Monitor) await(ctx context.Context, gen uint64, sub *interactivity.Subscription) {
	defer m.wg.Done()
	select {
	case <-sub.Done():
		m.deps.Loop.Schedule(func() { m.resolved(gen) })
	case <-ctx.Done():
	}
}

func (m *Monitor) resolved(gen uint64) {
	m.mu.Lock()
	if m.destroyed || !m.active || gen != m.gen {
		m.mu.Unlock()
		m.log.Debug("discarding superseded interactivity wait", "generation", gen)
		return
	}
	m.active = false
	m.probe = nil
	m.releaseWaitLocked()
	m.mu.Unlock()

	m.sendTransitionCompleteEvent()
}

// MonitoringActive reports whether a registry wait is outstanding.
func (m *Monitor) MonitoringActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Cancel discards any pending start work and any outstanding wait; their
// completion events will never fire.
func (m *Monitor) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.supersedeLocked()
	m.state = Idle
}

// Destroy releases the registry subscription and deferred work and waits
// for background waiters to exit. Safe to call more than once.
func (m *Monitor) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.supersedeLocked()
	m.destroyed = true
	m.state = Idle
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

func (m *Monitor) supersedeLocked() {
	m.gen++
	m.active = false
	m.pendingStart.Cancel()
	m.pendingStart = nil
	if m.probe != nil {
		m.deps.Registry.UnsubscribeRoute(m.probe)
		m.probe = nil
	}
	m.releaseWaitLocked()
}

func (m *Monitor) releaseWaitLocked() {
	if m.stopWait != nil {
		m.stopWait()
		m.stopWait = nil
	}
}

func (m *Monitor) sendTransitionCompleteEvent() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	target := m.view.FullRouteName()
	if m.latest != nil {
		target = m.latest.TargetName
	}
	startedAt := m.startedAt
	m.state = TransitionCompleted
	m.mu.Unlock()

	now := m.now()
	launch, elapsed := m.deps.Launch.Claim(now)
	ev := m.buildEvent(PhaseCompleted, target, nil)
	ev.IsAppLaunch = &launch
	if launch {
		ms := float64(elapsed) / float64(time.Millisecond)
		ev.TimeElapsed = &ms
	}
	if !startedAt.IsZero() {
		m.log.Debug("transition complete", "destination", target, "duration", now.Sub(startedAt), "appLaunch", launch)
	}
	m.deps.Tracker.TrackRoute(ev)
}

// SendTransitionEvent emits a route<phase> event for targetName with extra
// merged in. Nothing is sent once the monitor is destroyed.
func (m *Monitor) SendTransitionEvent(phase Phase, targetName string, extra map[string]any) {
	m.mu.Lock()
	destroyed := m.destroyed
	m.mu.Unlock()
	if destroyed {
		return
	}
	m.deps.Tracker.TrackRoute(m.buildEvent(phase, targetName, extra))
}

func (m *Monitor) buildEvent(phase Phase, targetName string, extra map[string]any) tracking.Event {
	lost := false
	if m.deps.Visibility != nil {
		lost = m.deps.Visibility.LostVisibility()
	}
	ev := tracking.Event{
		Name:           "route" + string(phase),
		Destination:    targetName,
		RouteName:      m.view.FullRouteName(),
		LostVisibility: lost,
		ClientTime:     m.now(),
		Extra:          extra,
	}
	m.mu.Lock()
	if m.latest != nil {
		ev.Page = m.latest.URL
	}
	m.mu.Unlock()
	return ev
}
