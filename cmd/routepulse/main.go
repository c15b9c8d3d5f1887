package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/routepulse/internal/config"
	"github.com/jask/routepulse/internal/database"
	"github.com/jask/routepulse/internal/database/repository"
	"github.com/jask/routepulse/internal/interactivity"
	"github.com/jask/routepulse/internal/monitor"
	"github.com/jask/routepulse/internal/router"
	"github.com/jask/routepulse/internal/routes"
	"github.com/jask/routepulse/internal/runloop"
	"github.com/jask/routepulse/internal/tracking"
	"github.com/jask/routepulse/internal/tui"
	"github.com/jask/routepulse/internal/visibility"
)

// processStart anchors the app-launch timeElapsed measurement.
var processStart = time.Now()

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		startRoute = flag.String("route", "", "Route to open first (overrides ui.start_route)")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: routepulse [flags] [report [-limit n]]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *configPath != "" {
		if err := os.Setenv("ROUTEPULSE_CONFIG", *configPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, closeLog, err := openLogger(cfg.Log, *verbose)
	if err != nil {
		log.Fatalf("log: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	switch cmd := flag.Arg(0); cmd {
	case "", "tui":
		err = runTUI(cfg, logger, *startRoute)
	case "report":
		err = report(cfg, flag.Args()[1:])
	default:
		flag.Usage()
		closeLog()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("routepulse failed", "err", err)
		closeLog()
		log.Fatalf("error: %v", err)
	}
}

func openLogger(cfg config.LogConfig, verbose bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.Level))); err != nil && cfg.Level != "" {
		return nil, nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	if verbose {
		level = slog.LevelDebug
	}
	if cfg.File == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("mkdir log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	var closed bool
	closeFn := func() {
		if !closed {
			closed = true
			_ = f.Close()
		}
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), closeFn, nil
}

func openStore(path string) (*repository.EventRepo, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	db, err := database.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if err := database.RunMigrationsWithDB(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repository.NewEventRepo(db), func() { _ = db.Close() }, nil
}

func runTUI(cfg config.Config, logger *slog.Logger, startRoute string) error {
	manifest, err := routes.Load(cfg.UI.RoutesFile)
	if err != nil {
		return err
	}
	if startRoute == "" {
		startRoute = cfg.UI.StartRoute
	}
	if _, err := manifest.Lookup(startRoute); err != nil {
		return err
	}

	feed := tui.NewFeed(32)
	sinks := []tracking.Sink{feed}
	if cfg.Telemetry.LogEvents {
		sinks = append(sinks, tracking.NewLogSink(logger, slog.LevelInfo))
	}
	if cfg.Database.Enabled {
		repo, closeDB, err := openStore(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer closeDB()
		sinks = append(sinks, repo)
	}
	tracker := tracking.New(sinks,
		tracking.WithLogger(logger),
		tracking.WithTimeout(cfg.Telemetry.SinkTimeout),
	)
	logger.Info("session started", "session", tracker.SessionID(), "routes", len(manifest.Routes))

	loop := runloop.New()
	defer loop.Close()
	registry := interactivity.NewRegistry(interactivity.WithLogger(logger))
	surface := visibility.NewSurface(visibility.Global)
	vis := visibility.NewTracker(surface, visibility.WithLogger(logger))
	defer vis.Close()

	r := router.New(manifest, monitor.Deps{
		Registry:   registry,
		Tracker:    tracker,
		Visibility: vis,
		Launch:     monitor.NewLaunchState(processStart),
		Loop:       loop,
	}, tracker, router.WithLogger(logger))
	defer r.Close()

	model := tui.New(tui.Deps{
		Router:        r,
		Loop:          loop,
		Registry:      registry,
		Surface:       surface,
		Visibility:    vis,
		Feed:          feed,
		FrameInterval: cfg.UI.FrameInterval,
		StartRoute:    startRoute,
		Logger:        logger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

func report(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "Number of recent events to list (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	repo, closeDB, err := openStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return writeReport(ctx, repo, os.Stdout, *limit)
}
