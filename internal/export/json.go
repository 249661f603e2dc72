package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/pulsetrack/internal/queue"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	Count      int         `json:"count"`
	Logs       []jsonEntry `json:"logs"`
}

type jsonEntry struct {
	ID          string `json:"id"`
	SessionID   string `json:"session_id"`
	Timestamp   string `json:"timestamp"`
	DurationSec int    `json:"duration_seconds"`
	Duration    string `json:"duration"`
	Keystrokes  int    `json:"keystrokes"`
	Clicks      int    `json:"clicks"`
	ProjectID   string `json:"project_id,omitempty"`
	MilestoneID string `json:"milestone_id,omitempty"`
	TaskID      string `json:"task_id,omitempty"`
	Description string `json:"description,omitempty"`
}

func ToJSON(logs []queue.ActivityLog, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(logs),
	}

	for _, l := range logs {
		export.Logs = append(export.Logs, jsonEntry{
			ID:          l.ID,
			SessionID:   l.SessionID,
			Timestamp:   l.Timestamp.Local().Format(time.RFC3339),
			DurationSec: l.DurationSeconds,
			Duration:    formatDuration(l.DurationSeconds),
			Keystrokes:  l.KeystrokeCount,
			Clicks:      l.ClickCount,
			ProjectID:   l.ProjectID,
			MilestoneID: l.MilestoneID,
			TaskID:      l.TaskID,
			Description: l.WorkDescription,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
