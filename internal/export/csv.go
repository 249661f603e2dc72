package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/pulsetrack/internal/queue"
)

func ToCSV(logs []queue.ActivityLog, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "Session", "Timestamp", "Duration (s)", "Duration", "Keystrokes", "Clicks", "Task", "Description"}); err != nil {
		return err
	}

	for _, l := range logs {
		row := []string{
			l.ID,
			l.SessionID,
			l.Timestamp.Local().Format(time.RFC3339),
			fmt.Sprintf("%d", l.DurationSeconds),
			formatDuration(l.DurationSeconds),
			fmt.Sprintf("%d", l.KeystrokeCount),
			fmt.Sprintf("%d", l.ClickCount),
			l.TaskID,
			l.WorkDescription,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func formatDuration(secs int) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
