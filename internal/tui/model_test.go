package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jask/routepulse/internal/interactivity"
	"github.com/jask/routepulse/internal/monitor"
	"github.com/jask/routepulse/internal/router"
	"github.com/jask/routepulse/internal/routes"
	"github.com/jask/routepulse/internal/runloop"
	"github.com/jask/routepulse/internal/tracking"
	"github.com/jask/routepulse/internal/visibility"
)

func newTestModel(t *testing.T) (Model, Deps) {
	t.Helper()
	loop := runloop.New()
	registry := interactivity.NewRegistry()
	surface := visibility.NewSurface(visibility.Global)
	vis := visibility.NewTracker(surface)
	feed := NewFeed(10)
	tracker := tracking.New([]tracking.Sink{feed})
	r := router.New(routes.Default(), monitor.Deps{
		Registry:   registry,
		Tracker:    tracker,
		Visibility: vis,
		Launch:     monitor.NewLaunchState(time.Now()),
		Loop:       loop,
	}, tracker)
	t.Cleanup(func() {
		r.Close()
		vis.Close()
		loop.Close()
	})
	deps := Deps{
		Router:     r,
		Loop:       loop,
		Registry:   registry,
		Surface:    surface,
		Visibility: vis,
		Feed:       feed,
		StartRoute: "index",
	}
	return New(deps), deps
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func named(feed *Feed, name string) []tracking.Event {
	var out []tracking.Event
	for _, ev := range feed.Recent() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestRouteBecomesInteractiveOncePanesLoad(t *testing.T) {
	m, deps := newTestModel(t)

	m = update(t, m, navigateMsg{name: "reports.monthly"})
	require.Equal(t, "reports.monthly", m.route.Name)
	require.Len(t, m.panes, 2)
	require.Contains(t, m.View(), "[launching]")
	require.Contains(t, m.View(), "monitor reports.monthly:")
	require.Len(t, named(deps.Feed, tracking.RouteTransitionStarted), 1)

	m = update(t, m, frameMsg{})
	require.True(t, deps.Router.Monitor("reports.monthly").MonitoringActive())

	m = update(t, m, paneLoadedMsg{epoch: m.epoch, index: 0})
	m = update(t, m, paneLoadedMsg{epoch: m.epoch, index: 1})
	m = update(t, m, frameMsg{})

	require.Eventually(t, func() bool {
		m = update(t, m, loopWakeMsg{})
		return len(named(deps.Feed, tracking.RouteTransitionCompleted)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	done := named(deps.Feed, tracking.RouteTransitionCompleted)[0]
	require.Equal(t, "reports.monthly", done.RouteName)
	require.True(t, *done.IsAppLaunch)
	require.True(t, deps.Registry.IsReporterInteractive("beacon:summary"))
	require.Contains(t, m.View(), "launch")
	require.NotContains(t, m.View(), "[launching]")
}

func TestLeavingRouteBeforePanesLoad(t *testing.T) {
	m, deps := newTestModel(t)

	m = update(t, m, navigateMsg{name: "reports.monthly"})
	m = update(t, m, frameMsg{})
	stale := paneLoadedMsg{epoch: m.epoch, index: 0}

	m = update(t, m, runeKey('4'))
	require.Equal(t, "settings", m.route.Name)
	require.False(t, deps.Router.Monitor("reports.monthly").MonitoringActive())

	m = update(t, m, stale)
	require.False(t, deps.Registry.IsReporterInteractive("beacon:summary"))

	m = update(t, m, frameMsg{})
	done := named(deps.Feed, tracking.RouteTransitionCompleted)
	require.Len(t, done, 1)
	require.Equal(t, "settings", done[0].RouteName)
	require.Len(t, named(deps.Feed, tracking.PageViewed), 2)
}

func TestNavigationKeysWrap(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, navigateMsg{name: "index"})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, "settings", m.route.Name)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, "index", m.route.Name)
	m = update(t, m, runeKey('9'))
	require.Equal(t, "index", m.route.Name, "out of range jump is ignored")
}

func TestReloadRemountsPanes(t *testing.T) {
	m, deps := newTestModel(t)

	m = update(t, m, navigateMsg{name: "index"})
	m = update(t, m, paneLoadedMsg{epoch: m.epoch, index: 0})
	m = update(t, m, frameMsg{})
	require.True(t, deps.Registry.IsReporterInteractive("beacon:welcome"))

	m = update(t, m, runeKey('r'))
	require.Equal(t, "index", m.route.Name)
	require.False(t, deps.Registry.IsReporterInteractive("beacon:welcome"))
	require.False(t, m.panes[0].loaded)
	require.Len(t, named(deps.Feed, tracking.RouteTransitionStarted), 2)
}

func TestFocusDrivesVisibility(t *testing.T) {
	m, deps := newTestModel(t)

	m = update(t, m, tea.BlurMsg{})
	require.False(t, deps.Visibility.Visible())
	require.Contains(t, m.View(), "[hidden]")

	m = update(t, m, tea.FocusMsg{})
	require.True(t, deps.Visibility.Visible())
	require.True(t, deps.Visibility.LostVisibility())
	require.Contains(t, m.View(), "[visibility lost]")

	m = update(t, m, runeKey('v'))
	require.True(t, deps.Surface.Hidden())
}

func TestUnknownRouteSetsError(t *testing.T) {
	m, deps := newTestModel(t)

	m = update(t, m, navigateMsg{name: "reprots"})
	require.True(t, m.statusErr)
	require.Contains(t, m.status, "did you mean")
	require.Empty(t, deps.Feed.Recent())
}

func TestViewLayout(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m = update(t, m, navigateMsg{name: "reports"})

	view := m.View()
	require.Contains(t, view, "routepulse")
	require.Contains(t, view, "3:reports.monthly")
	require.Contains(t, view, "loading")
	require.Equal(t, 30, len(strings.Split(view, "\n")))

	m = update(t, m, runeKey('q'))
	require.Equal(t, "Goodbye\n", m.View())
}

func TestFeedKeepsNewestEvents(t *testing.T) {
	f := NewFeed(2)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, f.Record(context.Background(), tracking.Event{Name: name}))
	}
	recent := f.Recent()
	require.Len(t, recent, 2)
	require.Equal(t, "c", recent[0].Name)
	require.Equal(t, "b", recent[1].Name)
}
