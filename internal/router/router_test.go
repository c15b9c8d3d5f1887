package router

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/routepulse/internal/beacon"
	"github.com/jask/routepulse/internal/interactivity"
	"github.com/jask/routepulse/internal/monitor"
	"github.com/jask/routepulse/internal/routes"
	"github.com/jask/routepulse/internal/runloop"
	"github.com/jask/routepulse/internal/tracking"
)

type harness struct {
	loop     *runloop.Loop
	registry *interactivity.Registry
	recorder *tracking.Recorder
	router   *Router
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		loop:     runloop.New(),
		registry: interactivity.NewRegistry(),
		recorder: tracking.NewRecorder(),
	}
	tracker := tracking.New([]tracking.Sink{h.recorder})
	h.router = New(routes.Default(), monitor.Deps{
		Registry: h.registry,
		Tracker:  tracker,
		Launch:   monitor.NewLaunchState(time.Now()),
		Loop:     h.loop,
	}, tracker)
	t.Cleanup(h.router.Close)
	return h
}

func (h *harness) waitForCompletion(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		h.loop.RunPending()
		return len(h.recorder.Named(tracking.RouteTransitionCompleted)) >= n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestOnlyLeafRouteReports(t *testing.T) {
	h := newHarness(t)

	route, err := h.router.TransitionTo("reports.monthly")
	require.NoError(t, err)
	require.Equal(t, "reports.monthly", h.router.Current())

	started := h.recorder.Named(tracking.RouteTransitionStarted)
	require.Len(t, started, 1)
	require.Equal(t, "reports.monthly", started[0].RouteName)

	h.loop.RenderSettled()
	require.False(t, h.router.Monitor("reports").MonitoringActive())
	require.True(t, h.router.Monitor("reports.monthly").MonitoringActive())

	pages := h.recorder.Named(tracking.PageViewed)
	require.Len(t, pages, 1)
	require.Equal(t, route.Path, pages[0].Page)

	for _, p := range route.Panes {
		b := beacon.New(p.Name, h.registry, h.loop)
		b.Mount()
	}
	h.loop.RenderSettled()
	h.waitForCompletion(t, 1)

	done := h.recorder.Named(tracking.RouteTransitionCompleted)
	require.Len(t, done, 1)
	require.Equal(t, "reports.monthly", done[0].RouteName)
	require.True(t, *done[0].IsAppLaunch)
}

func TestLeavingRouteCancelsItsWait(t *testing.T) {
	h := newHarness(t)

	_, err := h.router.TransitionTo("reports.monthly")
	require.NoError(t, err)
	h.loop.RenderSettled()
	require.True(t, h.router.Monitor("reports.monthly").MonitoringActive())

	_, err = h.router.TransitionTo("settings")
	require.NoError(t, err)
	require.False(t, h.router.Monitor("reports.monthly").MonitoringActive())
	require.Equal(t, 0, h.registry.Pending())

	h.loop.RenderSettled()
	done := h.recorder.Named(tracking.RouteTransitionCompleted)
	require.Len(t, done, 1)
	require.Equal(t, "settings", done[0].RouteName)
}

func TestParentWaitDroppedWhenChildEntered(t *testing.T) {
	h := newHarness(t)

	_, err := h.router.TransitionTo("reports")
	require.NoError(t, err)
	h.loop.RenderSettled()
	require.True(t, h.router.Monitor("reports").MonitoringActive())

	// reports is on the path to its child but no longer the destination, so
	// its pending wait is dropped without telemetry.
	_, err = h.router.TransitionTo("reports.monthly")
	require.NoError(t, err)
	require.False(t, h.router.Monitor("reports").IsLeafRoute(nil))
	require.False(t, h.router.Monitor("reports").MonitoringActive())
	require.True(t, h.router.Monitor("reports.monthly").IsLeafRoute(nil))
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)
	_, err := h.router.TransitionTo("setings")
	require.True(t, errors.Is(err, routes.ErrUnknownRoute))
	require.Contains(t, err.Error(), "settings")
	require.Empty(t, h.recorder.Events())
}

func TestRoutersShareOneLaunchByDefault(t *testing.T) {
	manifest, err := routes.Parse([]byte("[[route]]\nname = \"a\"\n[[route]]\nname = \"b\"\n"))
	require.NoError(t, err)
	loop := runloop.New()
	recorder := tracking.NewRecorder()
	tracker := tracking.New([]tracking.Sink{recorder})
	r := New(manifest, monitor.Deps{
		Registry: interactivity.NewRegistry(),
		Tracker:  tracker,
		Loop:     loop,
	}, tracker)
	t.Cleanup(r.Close)
	require.False(t, r.Launch().HasFirstTransitionCompleted())

	for _, name := range []string{"a", "b", "a"} {
		_, err := r.TransitionTo(name)
		require.NoError(t, err)
		loop.RenderSettled()
	}

	done := recorder.Named(tracking.RouteTransitionCompleted)
	require.Len(t, done, 3)
	launches := 0
	for _, ev := range done {
		if *ev.IsAppLaunch {
			launches++
		}
	}
	require.Equal(t, 1, launches)
	require.True(t, *done[0].IsAppLaunch)
	require.True(t, r.Launch().HasFirstTransitionCompleted())
}
