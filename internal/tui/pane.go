package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

type paneStatus int

const (
	paneLoading paneStatus = iota
	paneLoaded
	paneInteractive
)

// paneBox is one bordered pane in the route body.
type paneBox struct {
	Title    string
	Content  string
	Status   paneStatus
	Critical bool
}

func (p paneBox) Render(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	h := max(3, height)
	width = max(4, width)

	border := colorBorder
	prefix := "○ "
	switch p.Status {
	case paneLoaded:
		border, prefix = colorAccent, "◐ "
	case paneInteractive:
		border, prefix = colorSuccess, "● "
	}
	borderStyle := lipgloss.NewStyle().Foreground(border)
	contentStyle := lipgloss.NewStyle().Foreground(colorText)

	innerWidth := width - 2
	contentWidth := max(1, innerWidth-2)

	title := prefix + p.Title
	if p.Critical {
		title += " *"
	}
	titleText := " " + title + " "
	if ansi.StringWidth(titleText) > innerWidth {
		titleText = " " + ansi.Truncate(title, max(1, innerWidth-2), "") + " "
	}
	dashes := max(0, innerWidth-ansi.StringWidth(titleText))
	leftDash := min(1, dashes)
	rightDash := dashes - leftDash

	v := borderStyle.Render("│")
	top := borderStyle.Render("╭") +
		borderStyle.Render(strings.Repeat("─", leftDash)) +
		titleStyle.Render(titleText) +
		borderStyle.Render(strings.Repeat("─", rightDash)) +
		borderStyle.Render("╮")

	content := p.Content
	if p.Status == paneLoading {
		content = mutedStyle.Render("loading…")
	}
	lines := splitLines(content)
	rows := make([]string, 0, h)
	rows = append(rows, top)
	for i := 0; i < h-2; i++ {
		line := ""
		if i < len(lines) {
			line = lines[i]
		}
		line = contentStyle.Render(ansi.Truncate(line, contentWidth, ""))
		rows = append(rows, v+" "+padRight(line, contentWidth)+" "+v)
	}
	rows = append(rows, borderStyle.Render("╰"+strings.Repeat("─", innerWidth)+"╯"))
	return strings.Join(rows, "\n")
}

func splitLines(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func padRight(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func fitHeight(s string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func renderBar(style lipgloss.Style, width int, text string) string {
	line := ansi.Truncate(strings.ReplaceAll(text, "\n", " "), width, "")
	return style.Width(width).MaxWidth(width).Render(padRight(line, width))
}
