package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jask/routepulse/internal/tracking"
)

const feedRows = 5

func (m Model) View() string {
	if m.quitting {
		return "Goodbye\n"
	}
	width := max(1, m.width)
	header := m.renderHeader(width)
	status := m.renderStatus(width)
	feed := m.renderFeed(width)
	footer := m.renderFooter(width)

	available := max(0, m.height-lipgloss.Height(header)-lipgloss.Height(status)-lipgloss.Height(feed)-lipgloss.Height(footer))
	body := fitHeight(m.renderBody(width, available), available)

	view := strings.Join([]string{header, status, body, feed, footer}, "\n")
	view = fitHeight(view, max(1, m.height))
	return appStyle.Width(width).MaxWidth(width).Render(view)
}

func (m Model) renderHeader(width int) string {
	tabs := make([]string, 0, len(m.names))
	for i, name := range m.names {
		label := fmt.Sprintf("%d:%s", i+1, name)
		if i == m.active && m.route.Name != "" {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	left := headerAppStyle.Render("routepulse")
	right := tabSepStyle.Render(" ") + strings.Join(tabs, tabSepStyle.Render("│"))
	right = ansi.Truncate(right, width, "")
	gap := 1
	if lw, rw := ansi.StringWidth(left), ansi.StringWidth(right); lw+rw+1 < width {
		gap = width - lw - rw
	}
	return renderBar(headerBarStyle, width, left+tabSepStyle.Render(strings.Repeat(" ", gap))+right)
}

func (m Model) renderStatus(width int) string {
	msg := strings.TrimSpace(m.status)
	if msg == "" {
		msg = "Ready"
	}
	if m.deps.Visibility != nil {
		if !m.deps.Visibility.Visible() {
			msg += "  [hidden]"
		} else if m.deps.Visibility.LostVisibility() {
			msg += "  [visibility lost]"
		}
	}
	if !m.deps.Router.Launch().HasFirstTransitionCompleted() {
		msg += "  [launching]"
	}
	if m.statusErr {
		return renderBar(statusErrBarStyle, width, msg)
	}
	return renderBar(statusBarStyle, width, msg)
}

func (m Model) renderBody(width, height int) string {
	if height <= 0 || m.route.Name == "" {
		return ""
	}
	lines := []string{titleStyle.Render(m.route.Title) + "  " + mutedStyle.Render(m.route.Path)}
	if mon := m.deps.Router.Monitor(m.route.Name); mon != nil {
		state := mon.State().String()
		if mon.MonitoringActive() {
			state = warnStyle.Render(state)
		} else {
			state = accentStyle.Render(state)
		}
		lines = append(lines, mutedStyle.Render("monitor "+mon.RouteName()+": ")+state+mutedStyle.Render(fmt.Sprintf("  critical: %v", m.route.CriticalRegionNames())))
	}
	out := strings.Join(lines, "\n")
	if len(m.panes) == 0 {
		return out
	}

	paneHeight := max(3, (height-len(lines))/len(m.panes))
	boxes := make([]string, 0, len(m.panes))
	for _, ps := range m.panes {
		status := paneLoading
		if ps.loaded {
			status = paneLoaded
			if m.deps.Registry.IsReporterInteractive(ps.pane.ReportingName()) {
				status = paneInteractive
			}
		}
		title := ps.pane.Title
		if title == "" {
			title = ps.pane.Name
		}
		boxes = append(boxes, paneBox{
			Title:    title,
			Content:  ps.pane.Body,
			Status:   status,
			Critical: ps.pane.Critical,
		}.Render(width, paneHeight))
	}
	return out + "\n" + strings.Join(boxes, "\n")
}

func (m Model) renderFeed(width int) string {
	rows := make([]string, 0, feedRows+1)
	rows = append(rows, titleStyle.Render("events"))
	var events []tracking.Event
	if m.deps.Feed != nil {
		events = m.deps.Feed.Recent()
	}
	for i := 0; i < feedRows; i++ {
		if i >= len(events) {
			rows = append(rows, "")
			continue
		}
		rows = append(rows, ansi.Truncate(describeEvent(events[i]), width, "…"))
	}
	return strings.Join(rows, "\n")
}

func describeEvent(ev tracking.Event) string {
	ts := mutedStyle.Render(ev.ClientTime.Format("15:04:05.000"))
	switch ev.Name {
	case tracking.PageViewed:
		return fmt.Sprintf("%s %s %s", ts, accentStyle.Render(ev.Name), ev.Page)
	case tracking.RouteTransitionCompleted:
		s := fmt.Sprintf("%s %s %s", ts, okStyle.Render(ev.Name), ev.RouteName)
		if ev.IsAppLaunch != nil && *ev.IsAppLaunch && ev.TimeElapsed != nil {
			s += fmt.Sprintf(" launch %.0fms", *ev.TimeElapsed)
		}
		if ev.LostVisibility {
			s += warnStyle.Render(" lostVisibility")
		}
		return s
	default:
		return fmt.Sprintf("%s %s %s", ts, warnStyle.Render(ev.Name), ev.RouteName)
	}
}

func (m Model) renderFooter(width int) string {
	keyStyle := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Background(colorMantle)
	descStyle := lipgloss.NewStyle().Foreground(colorMuted).Background(colorMantle)
	space := lipgloss.NewStyle().Background(colorMantle).Render(" ")
	sep := lipgloss.NewStyle().Background(colorMantle).Render("  ")

	parts := make([]string, 0, len(m.keys.help()))
	for _, b := range m.keys.help() {
		h := b.Help()
		parts = append(parts, keyStyle.Render(h.Key)+space+descStyle.Render(h.Desc))
	}
	return renderBar(footerStyle, width, strings.Join(parts, sep))
}
