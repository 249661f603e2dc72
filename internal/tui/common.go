package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/pulsetrack/internal/archive"
	"github.com/sadopc/pulsetrack/internal/syncer"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewHistory
	viewManual
	viewReports
)

var viewNames = []string{"Dashboard", "History", "Manual Entry", "Reports"}

// --- Messages ---

type trackingStartedMsg struct{}

type trackingStoppedMsg struct {
	persistErr error
	syncErr    error
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type dashboardDataMsg struct {
	todayTotal int64
	pending    int
}

type historyDataMsg struct {
	entries []syncer.HistoryEntry
	err     error
}

type manualSavedMsg struct {
	err error
}

type reportsDataMsg struct {
	summaries []archive.DaySummary
}

type syncDoneMsg struct {
	err error
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}
