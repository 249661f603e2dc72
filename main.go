package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/pulsetrack/internal/archive"
	"github.com/sadopc/pulsetrack/internal/config"
	"github.com/sadopc/pulsetrack/internal/logging"
	"github.com/sadopc/pulsetrack/internal/queue"
	"github.com/sadopc/pulsetrack/internal/remote"
	"github.com/sadopc/pulsetrack/internal/syncer"
	"github.com/sadopc/pulsetrack/internal/tracker"
	"github.com/sadopc/pulsetrack/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log := logging.New(cfg.LogLevel, logFile)

	store := queue.New(cfg.QueuePath)

	client := remote.NewClient(&http.Client{Timeout: cfg.RequestTimeout}, cfg.BackendURL, cfg.APIKey)
	if token, err := store.SessionToken(); err == nil && token != "" {
		client.SetToken(token)
	}

	arc, err := archive.New(cfg.ArchivePath)
	if err != nil {
		// Reports and export degrade; capture and sync still work.
		log.Warnf("archive unavailable: %v", err)
		arc = nil
	} else {
		defer arc.Close()
	}

	engine := syncer.NewEngine(store, client, arc, log, cfg.SyncInterval)

	relay := tracker.NewRelay()
	trk := tracker.New(store, relay, log, tracker.Hooks{
		ScreenshotDue: func(req tracker.ScreenshotRequest) {
			// Capture itself belongs to a platform-specific collaborator.
			log.Infof("screenshot due: session=%s task=%s", req.SessionID, req.TaskID)
		},
		IdleChanged: func(idle bool) {
			log.Debugf("idle=%v", idle)
		},
	}, cfg.IdleThreshold, cfg.ScreenshotInterval)
	trk.SetUserID(cfg.UserID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	app := tui.NewApp(trk, relay, engine, arc, store, cfg.UserID)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		return err
	}

	// Persist any session still running when the user quits.
	if err := trk.Stop(); err != nil {
		log.Errorf("final stop: %v", err)
	}
	return nil
}
