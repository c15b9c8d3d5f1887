package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	tslc "github.com/NimbleMarkets/ntcharts/linechart/timeserieslinechart"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jask/routepulse/internal/database/repository"
)

var reportTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true)

const (
	trendWidth  = 60
	trendHeight = 8
)

// writeReport prints per-event counts, app-launch timing and the most recent
// events stored by the telemetry sink.
func writeReport(ctx context.Context, repo *repository.EventRepo, w io.Writer, limit int) error {
	counts, err := repo.CountByEvent(ctx)
	if err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	stats, err := repo.LaunchStats(ctx)
	if err != nil {
		return fmt.Errorf("launch stats: %w", err)
	}
	series, err := repo.LaunchSeries(ctx)
	if err != nil {
		return fmt.Errorf("launch series: %w", err)
	}
	events, err := repo.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	fmt.Fprintln(w, reportTitleStyle.Render("Events"))
	if len(counts) == 0 {
		fmt.Fprintln(w, "  none recorded")
		return nil
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-26s %d\n", name, counts[name])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, reportTitleStyle.Render("App launch"))
	if stats.Count == 0 {
		fmt.Fprintln(w, "  no launch completions recorded")
	} else {
		fmt.Fprintf(w, "  %d launches, mean %.0fms, max %.0fms\n", stats.Count, stats.MeanMS, stats.MaxMS)
	}
	if len(series) > 1 {
		fmt.Fprintln(w, launchTrend(series, stats.MaxMS))
	}

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		launch := ""
		if e.IsAppLaunch != nil {
			launch = strconv.FormatBool(*e.IsAppLaunch)
		}
		if e.TimeElapsedMS != nil {
			launch += fmt.Sprintf(" (%.0fms)", *e.TimeElapsedMS)
		}
		rows = append(rows, []string{
			e.ClientTime.Local().Format("2006-01-02 15:04:05"),
			e.Event,
			e.RouteName,
			e.Page,
			launch,
			strconv.FormatBool(e.LostVisibility),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("time", "event", "route", "page", "launch", "lost visibility").
		Rows(rows...)

	fmt.Fprintln(w)
	fmt.Fprintln(w, reportTitleStyle.Render("Recent"))
	fmt.Fprintln(w, t.Render())
	return nil
}

// launchTrend charts app-launch time across sessions.
func launchTrend(series []repository.LaunchPoint, maxMS float64) string {
	start, end := series[0].At, series[len(series)-1].At
	if !end.After(start) {
		end = start.Add(time.Second)
	}
	if maxMS <= 0 {
		maxMS = 1
	}
	chart := tslc.New(trendWidth, trendHeight)
	chart.SetStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")))
	chart.AxisStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#585b70"))
	chart.LabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6adc8"))
	chart.SetTimeRange(start, end)
	chart.SetViewTimeRange(start, end)
	chart.SetYRange(0, maxMS)
	chart.SetViewYRange(0, maxMS)
	for _, p := range series {
		chart.Push(tslc.TimePoint{Time: p.At, Value: p.MS})
	}
	chart.DrawBraille()
	return chart.View()
}
