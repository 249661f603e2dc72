package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "queue.json"))
}

func sampleLog(id string) ActivityLog {
	return ActivityLog{
		ID:              id,
		UserID:          "user-1",
		SessionID:       "sess-" + id,
		KeystrokeCount:  42,
		ClickCount:      7,
		DurationSeconds: 150,
		Timestamp:       time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC),
		TaskID:          "task-1",
		WorkDescription: "refactoring",
	}
}

// ============================================================
// Append / Pending
// ============================================================

func TestPendingMissingFile(t *testing.T) {
	s := newTestStore(t)

	logs, err := s.Pending()
	if err != nil {
		t.Fatalf("Pending on missing file: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected empty queue, got %d logs", len(logs))
	}
}

func TestAppendAndPending(t *testing.T) {
	s := newTestStore(t)

	if err := s.Append(sampleLog("a")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(sampleLog("b")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	logs, err := s.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	// Oldest first
	if logs[0].ID != "a" || logs[1].ID != "b" {
		t.Fatalf("wrong order: %q, %q", logs[0].ID, logs[1].ID)
	}
	if logs[0].KeystrokeCount != 42 || logs[0].DurationSeconds != 150 {
		t.Fatalf("log fields lost: %+v", logs[0])
	}
}

func TestPendingSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")

	s1 := New(path)
	if err := s1.Append(sampleLog("a")); err != nil {
		t.Fatal(err)
	}

	// New store instance on the same path sees the log.
	s2 := New(path)
	logs, err := s2.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].ID != "a" {
		t.Fatalf("log did not survive reopen: %+v", logs)
	}
	if !logs[0].Timestamp.Equal(sampleLog("a").Timestamp) {
		t.Fatalf("timestamp changed: %v", logs[0].Timestamp)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	s.Append(sampleLog("a"))
	s.Append(sampleLog("b"))

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	logs, err := s.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected empty queue after clear, got %d", len(logs))
	}
}

func TestClearKeepsSessionToken(t *testing.T) {
	s := newTestStore(t)
	s.Append(sampleLog("a"))
	if err := s.SetSessionToken("tok-123"); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}

	token, err := s.SessionToken()
	if err != nil {
		t.Fatal(err)
	}
	if token != "tok-123" {
		t.Fatalf("token lost on clear: %q", token)
	}
}

// ============================================================
// Session token
// ============================================================

func TestSessionTokenEmpty(t *testing.T) {
	s := newTestStore(t)

	token, err := s.SessionToken()
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetSessionToken("tok-abc"); err != nil {
		t.Fatal(err)
	}
	token, err := s.SessionToken()
	if err != nil {
		t.Fatal(err)
	}
	if token != "tok-abc" {
		t.Fatalf("token = %q, want tok-abc", token)
	}
}

func TestSetSessionTokenKeepsPendingLogs(t *testing.T) {
	s := newTestStore(t)
	s.Append(sampleLog("a"))

	if err := s.SetSessionToken("tok"); err != nil {
		t.Fatal(err)
	}

	logs, _ := s.Pending()
	if len(logs) != 1 {
		t.Fatalf("pending logs lost when storing token: %d", len(logs))
	}
}

// ============================================================
// On-disk format
// ============================================================

func TestDocumentShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	s := New(path)
	s.Append(sampleLog("a"))
	s.SetSessionToken("tok")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("queue file is not valid JSON: %v", err)
	}
	if _, ok := doc["pendingLogs"]; !ok {
		t.Fatal("missing pendingLogs key")
	}
	if _, ok := doc["sessionToken"]; !ok {
		t.Fatal("missing sessionToken key")
	}

	var logs []map[string]any
	if err := json.Unmarshal(doc["pendingLogs"], &logs); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "userId", "sessionId", "keystrokeCount", "clickCount", "durationSeconds", "timestamp"} {
		if _, ok := logs[0][key]; !ok {
			t.Fatalf("missing log field %q", key)
		}
	}
}

func TestCorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	s := New(path)
	if _, err := s.Pending(); err == nil {
		t.Fatal("expected error for corrupt queue file")
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "queue.json"))
	s.Append(sampleLog("a"))
	s.Append(sampleLog("b"))

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only queue.json, got %v", names)
	}
}
