package tui

import (
	"testing"
	"time"

	"github.com/sadopc/pulsetrack/internal/remote"
)

// ============================================================
// Manual entry validation
// ============================================================

func TestBuildManualEntry(t *testing.T) {
	entry, err := buildManualEntry("user-1", "2026-08-21", "09:00", "09:45", "p1", "m1", "t1", "code review")
	if err != nil {
		t.Fatalf("buildManualEntry: %v", err)
	}

	if entry.DurationSeconds != 2700 {
		t.Fatalf("duration = %d, want 2700 (45 minutes)", entry.DurationSeconds)
	}
	if entry.UserID != "user-1" {
		t.Fatalf("user = %q", entry.UserID)
	}
	if entry.ProjectID != "p1" || entry.MilestoneID != "m1" || entry.TaskID != "t1" {
		t.Fatalf("attribution lost: %+v", entry)
	}
	if entry.WorkDescription != "code review" {
		t.Fatalf("description = %q", entry.WorkDescription)
	}

	wantEnd := time.Date(2026, 8, 21, 9, 45, 0, 0, time.Local).UTC()
	if !entry.Timestamp.Equal(wantEnd) {
		t.Fatalf("timestamp = %v, want %v", entry.Timestamp, wantEnd)
	}
}

func TestBuildManualEntryTrimsWhitespace(t *testing.T) {
	entry, err := buildManualEntry("user-1", " 2026-08-21 ", " 09:00 ", " 10:00 ", " p1 ", "", " t1 ", "  ")
	if err != nil {
		t.Fatalf("buildManualEntry: %v", err)
	}
	if entry.ProjectID != "p1" || entry.TaskID != "t1" || entry.WorkDescription != "" {
		t.Fatalf("whitespace not trimmed: %+v", entry)
	}
	if entry.DurationSeconds != 3600 {
		t.Fatalf("duration = %d, want 3600", entry.DurationSeconds)
	}
}

func TestBuildManualEntryEndBeforeStart(t *testing.T) {
	if _, err := buildManualEntry("user-1", "2026-08-21", "10:00", "09:00", "", "", "", ""); err == nil {
		t.Fatal("end before start must be rejected")
	}
}

func TestBuildManualEntryEndEqualsStart(t *testing.T) {
	if _, err := buildManualEntry("user-1", "2026-08-21", "09:00", "09:00", "", "", "", ""); err == nil {
		t.Fatal("zero-length entry must be rejected")
	}
}

func TestBuildManualEntryBadInputs(t *testing.T) {
	cases := []struct {
		name             string
		date, start, end string
	}{
		{"bad date", "21-08-2026", "09:00", "10:00"},
		{"empty date", "", "09:00", "10:00"},
		{"bad start", "2026-08-21", "9am", "10:00"},
		{"bad end", "2026-08-21", "09:00", "later"},
	}
	for _, tc := range cases {
		if _, err := buildManualEntry("user-1", tc.date, tc.start, tc.end, "", "", "", ""); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

// ============================================================
// Rendering helpers
// ============================================================

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{60, "00:01:00"},
		{3661, "01:01:01"},
		{36000, "10:00:00"},
	}
	for _, tt := range tests {
		if got := formatSeconds(tt.secs); got != tt.want {
			t.Errorf("formatSeconds(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestRefTitle(t *testing.T) {
	if got := refTitle(nil); got != "—" {
		t.Errorf("nil ref = %q, want em dash placeholder", got)
	}
	if got := refTitle(&remote.Ref{ID: "p1", Title: "Website"}); got != "Website" {
		t.Errorf("ref title = %q", got)
	}
}
