package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pulsetrack/internal/archive"
	"github.com/sadopc/pulsetrack/internal/queue"
	"github.com/sadopc/pulsetrack/internal/syncer"
	"github.com/sadopc/pulsetrack/internal/tracker"
)

type dashboardModel struct {
	tracker *tracker.Tracker
	engine  *syncer.Engine
	arc     *archive.Store
	pending *queue.Store
	width   int
	height  int

	todayTotal   int64
	pendingCount int

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	projectID   *string
	milestoneID *string
	taskID      *string
	description *string
}

func newDashboardModel(t *tracker.Tracker, e *syncer.Engine, arc *archive.Store, q *queue.Store) dashboardModel {
	p, m, tk, d := "", "", "", ""
	return dashboardModel{
		tracker:     t,
		engine:      e,
		arc:         arc,
		pending:     q,
		projectID:   &p,
		milestoneID: &m,
		taskID:      &tk,
		description: &d,
	}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		var total int64
		if d.arc != nil {
			total, _ = d.arc.TodayTotal()
		}
		logs, _ := d.pending.Pending()
		return dashboardDataMsg{todayTotal: total, pending: len(logs)}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if d.formActive && d.form != nil {
		return d.updateForm(msg)
	}

	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.todayTotal = msg.todayTotal
		d.pendingCount = msg.pending
		return d, nil

	case tea.KeyMsg:
		stats := d.tracker.Stats()
		switch {
		case key.Matches(msg, keys.Start):
			if stats.IsTracking && !stats.IsPaused {
				return d, nil
			}
			if stats.IsTracking && stats.IsPaused {
				d.tracker.Resume()
				return d, nil
			}
			return d.showForm()

		case key.Matches(msg, keys.Stop):
			if !stats.IsTracking {
				return d, nil
			}
			return d, d.stopTracking()

		case key.Matches(msg, keys.Pause):
			if stats.IsPaused {
				d.tracker.Resume()
			} else {
				d.tracker.Pause()
			}
			return d, nil

		case key.Matches(msg, keys.Reset):
			d.tracker.Reset()
			return d, func() tea.Msg {
				return statusMsg{text: "Counters reset"}
			}

		case key.Matches(msg, keys.Sync):
			return d, d.syncNow()
		}
	}
	return d, nil
}

func (d dashboardModel) showForm() (dashboardModel, tea.Cmd) {
	*d.projectID, *d.milestoneID, *d.taskID, *d.description = "", "", "", ""

	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Project ID").Value(d.projectID),
			huh.NewInput().Title("Milestone ID").Value(d.milestoneID),
			huh.NewInput().Title("Task ID").Value(d.taskID),
			huh.NewInput().Title("What are you working on?").Value(d.description),
		).Title("Start Tracking"),
	).WithShowHelp(true).WithShowErrors(true)

	d.formActive = true
	return d, d.form.Init()
}

func (d dashboardModel) updateForm(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			d.formActive = false
			d.form = nil
			return d, nil
		}
	}

	form, cmd := d.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.form = f
	}

	if d.form.State == huh.StateCompleted {
		d.formActive = false
		d.tracker.Start(tracker.TaskContext{
			ProjectID:       strings.TrimSpace(*d.projectID),
			MilestoneID:     strings.TrimSpace(*d.milestoneID),
			TaskID:          strings.TrimSpace(*d.taskID),
			WorkDescription: strings.TrimSpace(*d.description),
		})
		if !d.tracker.Stats().IsTracking {
			return d, func() tea.Msg {
				return statusMsg{text: "Cannot start: no user id configured", isError: true}
			}
		}
		return d, func() tea.Msg { return trackingStartedMsg{} }
	}

	return d, cmd
}

// stopTracking ends the session and immediately attempts a flush, so the
// just-completed log does not sit in the queue for the next timer pass.
func (d dashboardModel) stopTracking() tea.Cmd {
	return func() tea.Msg {
		persistErr := d.tracker.Stop()
		syncErr := d.engine.SyncPending(context.Background())
		return trackingStoppedMsg{persistErr: persistErr, syncErr: syncErr}
	}
}

func (d dashboardModel) syncNow() tea.Cmd {
	return func() tea.Msg {
		return syncDoneMsg{err: d.engine.SyncPending(context.Background())}
	}
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4

	if d.formActive && d.form != nil {
		title := titleStyle.Render("Start Tracking")
		return panelStyle.Width(contentWidth).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", d.form.View()),
		)
	}

	timerPanel := d.renderTimerPanel(contentWidth)
	statsPanel := d.renderStatsPanel(contentWidth)

	return lipgloss.JoinVertical(lipgloss.Left, timerPanel, statsPanel)
}

func (d dashboardModel) renderTimerPanel(w int) string {
	stats := d.tracker.Stats()

	if stats.IsTracking {
		timeStr := formatSeconds(int64(stats.ElapsedSeconds))

		var timeDisplay, indicator string
		if stats.IsPaused {
			timeDisplay = timerPausedStyle.Width(w - 6).Render(timeStr)
			indicator = warningStyle.Render("⏸  PAUSED")
		} else {
			timeDisplay = timerRunningStyle.Width(w - 6).Render(timeStr)
			indicator = successStyle.Render("●  TRACKING")
			if stats.IsIdle {
				indicator = warningStyle.Render("●  IDLE")
			}
		}

		content := lipgloss.JoinVertical(lipgloss.Center,
			timeDisplay,
			indicator,
			mutedStyle.Render(fmt.Sprintf("⌨ %d keystrokes   🖰 %d clicks", stats.Keystrokes, stats.Clicks)),
		)
		return activePanelStyle.Width(w).Render(content)
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		timerStyle.Width(w-6).Render("00:00:00"),
		mutedStyle.Render("■  STOPPED"),
		mutedStyle.Render("Press s to start tracking"),
	)
	return panelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderStatsPanel(w int) string {
	title := titleStyle.Render("Today")
	total := highlightStyle.Render(formatSeconds(d.todayTotal))

	pendingLine := successStyle.Render("  all logs synced")
	if d.pendingCount > 0 {
		pendingLine = warningStyle.Render(fmt.Sprintf("  %d logs waiting to sync (y to sync now)", d.pendingCount))
	}

	rows := []string{
		fmt.Sprintf("%s  %s", title, total),
		pendingLine,
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
