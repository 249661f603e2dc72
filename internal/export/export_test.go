package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/pulsetrack/internal/queue"
)

func sampleLogs() []queue.ActivityLog {
	now := time.Now().UTC()

	return []queue.ActivityLog{
		{
			ID:              "log-1",
			UserID:          "user-1",
			SessionID:       "sess-1",
			KeystrokeCount:  120,
			ClickCount:      15,
			DurationSeconds: 3600,
			Timestamp:       now.Add(-1 * time.Hour),
			ProjectID:       "proj-1",
			TaskID:          "task-1",
			WorkDescription: "worked on feature",
		},
		{
			ID:              "log-2",
			UserID:          "user-1",
			SessionID:       "sess-2",
			KeystrokeCount:  0,
			ClickCount:      0,
			DurationSeconds: 1800,
			Timestamp:       now.Add(-30 * time.Minute),
			WorkDescription: "",
		},
	}
}

// ============================================================
// CSV
// ============================================================

func TestToCSV(t *testing.T) {
	logs := sampleLogs()
	path := filepath.Join(t.TempDir(), "test.csv")

	if err := ToCSV(logs, path); err != nil {
		t.Fatalf("ToCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	// header + 2 data rows
	if len(records) != 3 {
		t.Fatalf("expected 3 rows (1 header + 2 data), got %d", len(records))
	}

	header := records[0]
	expectedHeader := []string{"ID", "Session", "Timestamp", "Duration (s)", "Duration", "Keystrokes", "Clicks", "Task", "Description"}
	for i, h := range expectedHeader {
		if header[i] != h {
			t.Fatalf("header[%d] = %q, want %q", i, header[i], h)
		}
	}

	row := records[1]
	if row[0] != "log-1" {
		t.Fatalf("ID = %q, want log-1", row[0])
	}
	if row[3] != "3600" {
		t.Fatalf("Duration (s) = %q, want 3600", row[3])
	}
	if row[4] != "01:00:00" {
		t.Fatalf("Duration = %q, want 01:00:00", row[4])
	}
	if row[5] != "120" {
		t.Fatalf("Keystrokes = %q, want 120", row[5])
	}
	if row[8] != "worked on feature" {
		t.Fatalf("Description = %q", row[8])
	}
}

func TestToCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")

	if err := ToCSV(nil, path); err != nil {
		t.Fatal(err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	r := csv.NewReader(f)
	records, _ := r.ReadAll()
	if len(records) != 1 {
		t.Fatalf("expected 1 row (header only), got %d", len(records))
	}
}

func TestToCSVBadPath(t *testing.T) {
	if err := ToCSV(nil, "/nonexistent/dir/file.csv"); err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestToCSVSpecialCharacters(t *testing.T) {
	logs := []queue.ActivityLog{
		{
			ID:              "log-1",
			SessionID:       "sess-1",
			DurationSeconds: 60,
			Timestamp:       time.Now(),
			WorkDescription: `notes with "quotes" and, commas`,
		},
	}
	path := filepath.Join(t.TempDir(), "special.csv")

	if err := ToCSV(logs, path); err != nil {
		t.Fatal(err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("CSV should be valid even with special chars: %v", err)
	}
	if records[1][8] != `notes with "quotes" and, commas` {
		t.Fatalf("description mangled: %q", records[1][8])
	}
}

// ============================================================
// JSON
// ============================================================

func TestToJSON(t *testing.T) {
	logs := sampleLogs()
	path := filepath.Join(t.TempDir(), "test.json")

	if err := ToJSON(logs, path); err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var result jsonExport
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if result.Count != 2 {
		t.Fatalf("count = %d, want 2", result.Count)
	}
	if len(result.Logs) != 2 {
		t.Fatalf("logs = %d, want 2", len(result.Logs))
	}
	if result.ExportedAt == "" {
		t.Fatal("exported_at should not be empty")
	}

	e := result.Logs[0]
	if e.ID != "log-1" {
		t.Fatalf("ID = %q, want log-1", e.ID)
	}
	if e.DurationSec != 3600 {
		t.Fatalf("DurationSec = %d, want 3600", e.DurationSec)
	}
	if e.Duration != "01:00:00" {
		t.Fatalf("Duration = %q, want 01:00:00", e.Duration)
	}
	if e.Keystrokes != 120 {
		t.Fatalf("Keystrokes = %d, want 120", e.Keystrokes)
	}
	if e.Description != "worked on feature" {
		t.Fatalf("Description = %q", e.Description)
	}
}

func TestToJSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")

	if err := ToJSON(nil, path); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	var result jsonExport
	json.Unmarshal(data, &result)

	if result.Count != 0 {
		t.Fatalf("count = %d, want 0", result.Count)
	}
	if result.Logs != nil {
		t.Fatal("logs should be nil/null for empty export")
	}
}

func TestToJSONBadPath(t *testing.T) {
	if err := ToJSON(nil, "/nonexistent/dir/file.json"); err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestToJSONPrettyPrinted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pretty.json")
	ToJSON(nil, path)

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n") {
		t.Fatal("JSON should be pretty-printed with newlines")
	}
	if !strings.Contains(string(data), "  ") {
		t.Fatal("JSON should be indented with spaces")
	}
}

func TestToJSONValidTimestamps(t *testing.T) {
	logs := sampleLogs()
	path := filepath.Join(t.TempDir(), "ts.json")
	ToJSON(logs, path)

	data, _ := os.ReadFile(path)
	var result jsonExport
	json.Unmarshal(data, &result)

	if _, err := time.Parse(time.RFC3339, result.ExportedAt); err != nil {
		t.Fatalf("exported_at is not valid RFC3339: %q", result.ExportedAt)
	}

	for _, e := range result.Logs {
		if _, err := time.Parse(time.RFC3339, e.Timestamp); err != nil {
			t.Fatalf("timestamp is not valid RFC3339: %q", e.Timestamp)
		}
	}
}

// ============================================================
// formatDuration (internal helper)
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{0, "00:00:00"},
		{1, "00:00:01"},
		{60, "00:01:00"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{86400, "24:00:00"},
		{90061, "25:01:01"},
	}

	for _, tt := range tests {
		got := formatDuration(tt.secs)
		if got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}
