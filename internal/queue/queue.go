// Package queue is the durable holding pen for activity logs that have not
// reached the backend yet. It is a single JSON document on disk, rewritten
// whole on every change. The process is the only writer; there is no
// cross-process locking.
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ActivityLog is the one durable record produced per completed session.
// Field names match the on-disk document format.
type ActivityLog struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	SessionID       string    `json:"sessionId"`
	KeystrokeCount  int       `json:"keystrokeCount"`
	ClickCount      int       `json:"clickCount"`
	DurationSeconds int       `json:"durationSeconds"`
	Timestamp       time.Time `json:"timestamp"`
	ProjectID       string    `json:"projectId,omitempty"`
	MilestoneID     string    `json:"milestoneId,omitempty"`
	TaskID          string    `json:"taskId,omitempty"`
	WorkDescription string    `json:"workDescription,omitempty"`
}

type document struct {
	PendingLogs  []ActivityLog `json:"pendingLogs"`
	SessionToken *string       `json:"sessionToken"`
}

// Store persists the pending-log document at a fixed path.
type Store struct {
	path string
}

// New creates the store. The file is initialized on first write; Pending on
// a missing file reports an empty queue.
func New(path string) *Store {
	return &Store{path: path}
}

// Append reads the current document, pushes the log and writes the document
// back. A crash between read and write loses at most this one log.
func (s *Store) Append(log ActivityLog) error {
	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.PendingLogs = append(doc.PendingLogs, log)
	return s.write(doc)
}

// Pending returns the logs awaiting sync, oldest first.
func (s *Store) Pending() ([]ActivityLog, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return doc.PendingLogs, nil
}

// Clear empties the pending list. Called only after the backend confirmed
// the detail insert for the whole batch.
func (s *Store) Clear() error {
	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.PendingLogs = []ActivityLog{}
	return s.write(doc)
}

// SessionToken returns the persisted auth token, or "" if none is stored.
func (s *Store) SessionToken() (string, error) {
	doc, err := s.read()
	if err != nil {
		return "", err
	}
	if doc.SessionToken == nil {
		return "", nil
	}
	return *doc.SessionToken, nil
}

// SetSessionToken persists the auth token alongside the pending logs.
func (s *Store) SetSessionToken(token string) error {
	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.SessionToken = &token
	return s.write(doc)
}

func (s *Store) read() (document, error) {
	doc := document{PendingLogs: []ActivityLog{}}
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read queue file: %w", err)
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("decode queue file: %w", err)
	}
	if doc.PendingLogs == nil {
		doc.PendingLogs = []ActivityLog{}
	}
	return doc, nil
}

// write replaces the file atomically: temp file in the same directory,
// fsync, rename. On crash either the old or the new complete document exists.
func (s *Store) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create queue directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".queue-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}
