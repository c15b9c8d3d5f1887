// Package router is the host routing system: it owns one interactivity
// monitor per declared route and notifies every route on a transition's
// path, outermost first.
package router

import (
	"log/slog"
	"time"

	"github.com/jask/routepulse/internal/monitor"
	"github.com/jask/routepulse/internal/routes"
)

// PageTracker receives page views once a transition has rendered.
type PageTracker interface {
	TrackPage(page, title string)
}

type Option func(*Router)

func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMonitorOptions passes options to every monitor the router creates.
func WithMonitorOptions(opts ...monitor.Option) Option {
	return func(r *Router) {
		r.monitorOpts = append(r.monitorOpts, opts...)
	}
}

type Router struct {
	manifest    *routes.Manifest
	deps        monitor.Deps
	pages       PageTracker
	monitors    map[string]*monitor.Monitor
	monitorOpts []monitor.Option
	current     string
	closed      bool
	log         *slog.Logger
}

func New(manifest *routes.Manifest, deps monitor.Deps, pages PageTracker, opts ...Option) *Router {
	r := &Router{
		manifest: manifest,
		deps:     deps,
		pages:    pages,
		monitors: make(map[string]*monitor.Monitor, len(manifest.Routes)),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	// The launch is claimed once per process, not once per route.
	if deps.Launch == nil {
		deps.Launch = monitor.NewLaunchState(time.Now())
	}
	r.deps = deps
	mopts := append([]monitor.Option{monitor.WithLogger(r.log)}, r.monitorOpts...)
	for _, route := range manifest.Routes {
		r.monitors[route.Name] = monitor.New(route, deps, mopts...)
	}
	return r
}

func (r *Router) Manifest() *routes.Manifest {
	return r.manifest
}

// Current is the active leaf route name, empty before the first transition.
func (r *Router) Current() string {
	return r.current
}

// Launch is the launch state shared by every monitor of the router.
func (r *Router) Launch() *monitor.LaunchState {
	return r.deps.Launch
}

func (r *Router) Monitor(name string) *monitor.Monitor {
	return r.monitors[name]
}

// TransitionTo moves to the named route. Routes that are left have their
// pending monitoring cancelled; routes on the new path are notified in
// order, and a page view is tracked after the next render.
func (r *Router) TransitionTo(name string) (routes.Route, error) {
	route, err := r.manifest.Lookup(name)
	if err != nil {
		return routes.Route{}, err
	}
	if r.closed {
		return route, nil
	}

	t := &monitor.Transition{TargetName: route.Name, URL: route.Path}
	next := routes.Ancestors(route.Name)
	onPath := make(map[string]bool, len(next))
	for _, n := range next {
		onPath[n] = true
	}
	if r.current != "" {
		for _, n := range routes.Ancestors(r.current) {
			if !onPath[n] {
				r.monitors[n].Cancel()
			}
		}
	}

	r.log.Debug("transition", "from", r.current, "to", route.Name)
	for _, n := range next {
		r.monitors[n].WillTransition(t)
	}
	r.current = route.Name
	for _, n := range next {
		r.monitors[n].DidTransition(t)
	}

	if r.pages != nil {
		r.deps.Loop.AfterRender(func() { r.pages.TrackPage(route.Path, route.Name) })
	}
	return route, nil
}

// Close destroys every monitor. Idempotent.
func (r *Router) Close() {
	if r.closed {
		return
	}
	r.closed = true
	for _, m := range r.monitors {
		m.Destroy()
	}
}
