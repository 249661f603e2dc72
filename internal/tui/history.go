package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/pulsetrack/internal/remote"
	"github.com/sadopc/pulsetrack/internal/syncer"
)

type historyModel struct {
	engine *syncer.Engine
	userID string
	width  int
	height int

	entries []syncer.HistoryEntry
	loaded  bool
	loadErr error
	cursor  int
}

func newHistoryModel(e *syncer.Engine, userID string) historyModel {
	return historyModel{engine: e, userID: userID}
}

func (h *historyModel) setSize(w, ht int) {
	h.width = w
	h.height = ht
}

func (h historyModel) refresh() tea.Cmd {
	return func() tea.Msg {
		entries, err := h.engine.GetHistory(context.Background(), h.userID)
		return historyDataMsg{entries: entries, err: err}
	}
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyDataMsg:
		// A failed fetch shows an empty list, same as no history.
		h.entries = msg.entries
		h.loadErr = msg.err
		h.loaded = true
		if h.cursor >= len(h.entries) {
			h.cursor = max(0, len(h.entries)-1)
		}
		return h, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Refresh):
			return h, h.refresh()
		case key.Matches(msg, keys.Up):
			if h.cursor > 0 {
				h.cursor--
			}
		case key.Matches(msg, keys.Down):
			if h.cursor < len(h.entries)-1 {
				h.cursor++
			}
		}
	}
	return h, nil
}

func (h historyModel) view() string {
	w := h.width - 4
	title := titleStyle.Render("History")

	if !h.loaded {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, mutedStyle.Render("Press r to load history")),
		)
	}
	if h.loadErr != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, errorStyle.Render("Could not load history"), mutedStyle.Render("r: retry")),
		)
	}
	if len(h.entries) == 0 {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, mutedStyle.Render("No sessions recorded yet")),
		)
	}

	visible := h.height - 8
	if visible < 3 {
		visible = 3
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, e := range h.entries {
		if i >= visible {
			rows = append(rows, mutedStyle.Render(fmt.Sprintf("  … %d more", len(h.entries)-visible)))
			break
		}
		rows = append(rows, h.renderEntry(i, e))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (h historyModel) renderEntry(i int, e syncer.HistoryEntry) string {
	cursor := "  "
	if i == h.cursor {
		cursor = "> "
	}

	when := e.LogTimestamp.Local().Format("Jan 02 15:04")
	dur := formatSeconds(int64(e.DurationSeconds))
	line := fmt.Sprintf("%s%s  %s  %s / %s / %s",
		cursor, when, dur,
		refTitle(e.Project), refTitle(e.Milestone), refTitle(e.Task),
	)
	if i == h.cursor {
		detail := mutedStyle.Render(fmt.Sprintf("      ⌨ %d  🖰 %d  %s", e.KeystrokeCount, e.ClickCount, e.WorkDescription))
		return highlightStyle.Render(line) + "\n" + detail
	}
	return line
}

// refTitle renders a reference that may be missing from its collection.
func refTitle(r *remote.Ref) string {
	if r == nil {
		return "—"
	}
	return r.Title
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
