package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pulsetrack/internal/syncer"
)

type manualModel struct {
	engine *syncer.Engine
	userID string
	width  int
	height int

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	date        *string
	start       *string
	end         *string
	projectID   *string
	milestoneID *string
	taskID      *string
	description *string

	lastStatus string
	lastError  bool
}

func newManualModel(e *syncer.Engine, userID string) manualModel {
	d, st, en := "", "", ""
	p, m, tk, desc := "", "", "", ""
	return manualModel{
		engine:      e,
		userID:      userID,
		date:        &d,
		start:       &st,
		end:         &en,
		projectID:   &p,
		milestoneID: &m,
		taskID:      &tk,
		description: &desc,
	}
}

func (m *manualModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m manualModel) update(msg tea.Msg) (manualModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case manualSavedMsg:
		if msg.err != nil {
			m.lastStatus = fmt.Sprintf("Save failed: %v", msg.err)
			m.lastError = true
		} else {
			m.lastStatus = "Entry saved"
			m.lastError = false
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.New), key.Matches(msg, keys.Enter):
			return m.showForm()
		}
	}
	return m, nil
}

func (m manualModel) showForm() (manualModel, tea.Cmd) {
	*m.date = time.Now().Format("2006-01-02")
	*m.start, *m.end = "", ""
	*m.projectID, *m.milestoneID, *m.taskID, *m.description = "", "", "", ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Date (YYYY-MM-DD)").Value(m.date),
			huh.NewInput().Title("Start time (HH:MM)").Value(m.start),
			huh.NewInput().Title("End time (HH:MM)").Value(m.end),
		).Title("When"),
		huh.NewGroup(
			huh.NewInput().Title("Project ID").Value(m.projectID),
			huh.NewInput().Title("Milestone ID").Value(m.milestoneID),
			huh.NewInput().Title("Task ID").Value(m.taskID),
			huh.NewInput().Title("Work description").Value(m.description),
		).Title("What"),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m manualModel) updateForm(msg tea.Msg) (manualModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		entry, err := buildManualEntry(m.userID, *m.date, *m.start, *m.end, *m.projectID, *m.milestoneID, *m.taskID, *m.description)
		if err != nil {
			// Rejected before any write reaches the backend.
			m.lastStatus = fmt.Sprintf("Invalid entry: %v", err)
			m.lastError = true
			return m, nil
		}
		return m, m.save(entry)
	}

	return m, cmd
}

func (m manualModel) save(entry syncer.ManualEntry) tea.Cmd {
	return func() tea.Msg {
		return manualSavedMsg{err: m.engine.AddManualLog(context.Background(), entry)}
	}
}

// buildManualEntry validates the form input and computes the duration from
// the start and end clock times on the given date. End must be strictly
// after start.
func buildManualEntry(userID, date, start, end, projectID, milestoneID, taskID, description string) (syncer.ManualEntry, error) {
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), time.Local)
	if err != nil {
		return syncer.ManualEntry{}, fmt.Errorf("bad date %q", date)
	}
	startClock, err := time.Parse("15:04", strings.TrimSpace(start))
	if err != nil {
		return syncer.ManualEntry{}, fmt.Errorf("bad start time %q", start)
	}
	endClock, err := time.Parse("15:04", strings.TrimSpace(end))
	if err != nil {
		return syncer.ManualEntry{}, fmt.Errorf("bad end time %q", end)
	}

	startAt := day.Add(time.Duration(startClock.Hour())*time.Hour + time.Duration(startClock.Minute())*time.Minute)
	endAt := day.Add(time.Duration(endClock.Hour())*time.Hour + time.Duration(endClock.Minute())*time.Minute)
	if !endAt.After(startAt) {
		return syncer.ManualEntry{}, fmt.Errorf("end time must be after start time")
	}

	return syncer.ManualEntry{
		UserID:          userID,
		DurationSeconds: int(endAt.Sub(startAt).Seconds()),
		Timestamp:       endAt.UTC(),
		ProjectID:       strings.TrimSpace(projectID),
		MilestoneID:     strings.TrimSpace(milestoneID),
		TaskID:          strings.TrimSpace(taskID),
		WorkDescription: strings.TrimSpace(description),
	}, nil
}

func (m manualModel) view() string {
	w := m.width - 4
	title := titleStyle.Render("Manual Entry")

	if m.formActive && m.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View()),
		)
	}

	var status string
	if m.lastStatus != "" {
		if m.lastError {
			status = errorStyle.Render(m.lastStatus)
		} else {
			status = successStyle.Render(m.lastStatus)
		}
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("Log work that was not tracked live. Press n to add an entry."),
			status,
		),
	)
}
