// Package tui is the terminal host for the route monitor. Each declared
// route is a tab; its panes load after their configured delay and mount a
// beacon once loaded, so the route's monitor sees its critical regions
// become interactive the way a real view would.
package tui

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/routepulse/internal/beacon"
	"github.com/jask/routepulse/internal/interactivity"
	"github.com/jask/routepulse/internal/router"
	"github.com/jask/routepulse/internal/routes"
	"github.com/jask/routepulse/internal/runloop"
	"github.com/jask/routepulse/internal/visibility"
)

// Deps are the services the model drives. All are required except Logger.
type Deps struct {
	Router        *router.Router
	Loop          *runloop.Loop
	Registry      *interactivity.Registry
	Surface       *visibility.Surface
	Visibility    *visibility.Tracker
	Feed          *Feed
	FrameInterval time.Duration
	StartRoute    string
	Logger        *slog.Logger
}

type paneState struct {
	pane   routes.Pane
	loaded bool
	beacon *beacon.Beacon
}

type Model struct {
	deps  Deps
	keys  keyMap
	names []string
	log   *slog.Logger

	active     int
	route      routes.Route
	panes      []*paneState
	epoch      int
	frameArmed bool

	width     int
	height    int
	status    string
	statusErr bool
	quitting  bool
}

type navigateMsg struct{ name string }

type loopWakeMsg struct{}

type frameMsg struct{}

type paneLoadedMsg struct {
	epoch int
	index int
}

func New(deps Deps) Model {
	if deps.FrameInterval <= 0 {
		deps.FrameInterval = 16 * time.Millisecond
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	names := deps.Router.Manifest().Names()
	if deps.StartRoute == "" {
		deps.StartRoute = names[0]
	}
	return Model{
		deps:   deps,
		keys:   defaultKeys(),
		names:  names,
		log:    log,
		width:  80,
		height: 24,
	}
}

func (m Model) Init() tea.Cmd {
	start := m.deps.StartRoute
	return tea.Batch(
		waitForLoop(m.deps.Loop),
		func() tea.Msg { return navigateMsg{name: start} },
	)
}

// waitForLoop delivers a loopWakeMsg once the loop has new work.
func waitForLoop(l *runloop.Loop) tea.Cmd {
	return func() tea.Msg {
		<-l.Wake()
		return loopWakeMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.FocusMsg:
		m.deps.Surface.SetHidden(false)
	case tea.BlurMsg:
		m.deps.Surface.SetHidden(true)
	case navigateMsg:
		cmds = append(cmds, m.navigate(msg.name))
	case paneLoadedMsg:
		m.paneLoaded(msg)
	case loopWakeMsg:
		m.deps.Loop.RunPending()
		cmds = append(cmds, waitForLoop(m.deps.Loop))
	case frameMsg:
		m.frameArmed = false
		m.deps.Loop.RenderSettled()
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.leaveRoute()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			cmds = append(cmds, m.navigate(m.names[(m.active+1)%len(m.names)]))
		case key.Matches(msg, m.keys.Prev):
			cmds = append(cmds, m.navigate(m.names[(m.active-1+len(m.names))%len(m.names)]))
		case key.Matches(msg, m.keys.Jump):
			n, _ := strconv.Atoi(msg.String())
			if n >= 1 && n <= len(m.names) {
				cmds = append(cmds, m.navigate(m.names[n-1]))
			}
		case key.Matches(msg, m.keys.Reload):
			if m.route.Name != "" {
				cmds = append(cmds, m.navigate(m.route.Name))
			}
		case key.Matches(msg, m.keys.Hide):
			m.deps.Surface.SetHidden(!m.deps.Surface.Hidden())
		}
	}
	if cmd := m.armFrame(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// armFrame schedules a render-settled pass when after-render work waits.
func (m *Model) armFrame() tea.Cmd {
	if m.frameArmed || !m.deps.Loop.HasAfterRender() {
		return nil
	}
	m.frameArmed = true
	return tea.Tick(m.deps.FrameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

func (m *Model) navigate(name string) tea.Cmd {
	if _, err := m.deps.Router.Manifest().Lookup(name); err != nil {
		m.status, m.statusErr = err.Error(), true
		return nil
	}
	m.leaveRoute()
	route, err := m.deps.Router.TransitionTo(name)
	if err != nil {
		m.status, m.statusErr = err.Error(), true
		return nil
	}
	m.epoch++
	m.route = route
	for i, n := range m.names {
		if n == route.Name {
			m.active = i
		}
	}
	m.status, m.statusErr = "→ "+route.Title, false

	m.panes = make([]*paneState, len(route.Panes))
	var cmds []tea.Cmd
	for i, p := range route.Panes {
		m.panes[i] = &paneState{pane: p}
		if p.Load.Duration <= 0 {
			m.paneLoaded(paneLoadedMsg{epoch: m.epoch, index: i})
			continue
		}
		epoch, index := m.epoch, i
		cmds = append(cmds, tea.Tick(p.Load.Duration, func(time.Time) tea.Msg {
			return paneLoadedMsg{epoch: epoch, index: index}
		}))
	}
	return tea.Batch(cmds...)
}

func (m *Model) paneLoaded(msg paneLoadedMsg) {
	if msg.epoch != m.epoch || msg.index < 0 || msg.index >= len(m.panes) {
		return
	}
	ps := m.panes[msg.index]
	if ps.loaded {
		return
	}
	ps.loaded = true
	ps.beacon = beacon.New(ps.pane.Name, m.deps.Registry, m.deps.Loop)
	ps.beacon.Mount()
	m.log.Debug("pane loaded", "route", m.route.Name, "region", ps.beacon.RegionName())
}

// leaveRoute tears down the current route's mounted beacons.
func (m *Model) leaveRoute() {
	for _, ps := range m.panes {
		if ps.beacon != nil {
			ps.beacon.Unmount()
		}
	}
	m.panes = nil
}
