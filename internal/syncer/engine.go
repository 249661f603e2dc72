// Package syncer drains the pending queue to the backend and serves the
// enriched history view.
package syncer

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/pulsetrack/internal/archive"
	"github.com/sadopc/pulsetrack/internal/logging"
	"github.com/sadopc/pulsetrack/internal/queue"
	"github.com/sadopc/pulsetrack/internal/remote"
)

const historyLimit = 50

// HistoryEntry is a detail row with its referenced entities attached.
// Missing references stay nil.
type HistoryEntry struct {
	remote.ActivityLogRow
	Project   *remote.Ref
	Milestone *remote.Ref
	Task      *remote.Ref
}

// ManualEntry is a user-entered log that bypasses the queue.
type ManualEntry struct {
	UserID          string
	DurationSeconds int
	Timestamp       time.Time
	ProjectID       string
	MilestoneID     string
	TaskID          string
	WorkDescription string
}

// Engine runs the background sync loop and the on-demand operations.
// Overlapping sync attempts collapse into one pass: the in-flight guard
// skips, it does not queue.
type Engine struct {
	store   *queue.Store
	client  *remote.Client
	archive *archive.Store // optional
	log     *logging.Logger

	interval time.Duration
	syncing  atomic.Bool
}

func NewEngine(store *queue.Store, client *remote.Client, arc *archive.Store, log *logging.Logger, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Engine{
		store:    store,
		client:   client,
		archive:  arc,
		log:      log,
		interval: interval,
	}
}

// Run attempts a sync every interval until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.SyncPending(ctx); err != nil {
				e.log.Errorf("sync pass failed: %v", err)
			}
		}
	}
}

// SyncPending pushes the whole pending batch to the backend.
//
// The clearing rule is asymmetric on purpose: the queue is cleared iff the
// detail insert succeeds. An aggregate-insert failure is logged and those
// rows are gone; it never blocks clearing and is never retried.
func (e *Engine) SyncPending(ctx context.Context) error {
	if !e.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer e.syncing.Store(false)

	pending, err := e.store.Pending()
	if err != nil {
		return fmt.Errorf("read pending queue: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	e.log.Infof("syncing %d pending logs", len(pending))

	detailErr := e.client.InsertActivityLogs(ctx, detailRows(pending))
	if detailErr != nil {
		e.log.Errorf("detail insert failed, queue retained: %v", detailErr)
	}

	// Attempted regardless of the detail outcome, as the aggregate batch is
	// derived independently.
	if updates := aggregateRows(pending); len(updates) > 0 {
		if err := e.client.InsertWorkUpdates(ctx, updates); err != nil {
			e.log.Errorf("aggregate insert failed, %d rows dropped: %v", len(updates), err)
		}
	}

	if detailErr != nil {
		return detailErr
	}

	if e.archive != nil {
		if err := e.archive.Record(pending); err != nil {
			e.log.Warnf("archive synced batch: %v", err)
		}
	}

	if err := e.store.Clear(); err != nil {
		return fmt.Errorf("clear pending queue: %w", err)
	}
	e.log.Infof("synced %d logs", len(pending))
	return nil
}

// AddManualLog inserts a user-entered log directly into both collections.
// The detail insert is mandatory; the aggregate insert is attempted only
// when a task is set and its failure does not fail the call.
func (e *Engine) AddManualLog(ctx context.Context, entry ManualEntry) error {
	row := remote.ActivityLogRow{
		UserID:          entry.UserID,
		SessionID:       uuid.NewString(),
		DurationSeconds: entry.DurationSeconds,
		LogTimestamp:    entry.Timestamp,
		ProjectID:       entry.ProjectID,
		MilestoneID:     entry.MilestoneID,
		TaskID:          entry.TaskID,
		WorkDescription: entry.WorkDescription,
	}
	if err := e.client.InsertActivityLogs(ctx, []remote.ActivityLogRow{row}); err != nil {
		return fmt.Errorf("manual detail insert: %w", err)
	}

	if entry.TaskID != "" {
		desc := entry.WorkDescription
		if desc == "" {
			desc = "Manual Entry"
		}
		update := remote.WorkUpdateRow{
			DeveloperID:     entry.UserID,
			ProjectID:       entry.ProjectID,
			MilestoneID:     entry.MilestoneID,
			TaskID:          entry.TaskID,
			WorkDescription: desc,
			DurationMinutes: roundedMinutes(entry.DurationSeconds),
			WorkDate:        entry.Timestamp.UTC().Format("2006-01-02"),
		}
		if err := e.client.InsertWorkUpdates(ctx, []remote.WorkUpdateRow{update}); err != nil {
			e.log.Errorf("manual aggregate insert failed: %v", err)
		}
	}
	return nil
}

// GetHistory fetches the newest detail rows for the user and attaches the
// referenced project, milestone and task entities by id. Only a failure of
// the primary fetch is an error; a failed or empty reference lookup leaves
// the corresponding fields nil.
func (e *Engine) GetHistory(ctx context.Context, userID string) ([]HistoryEntry, error) {
	rows, err := e.client.ListActivityLogs(ctx, userID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	if len(rows) == 0 {
		return []HistoryEntry{}, nil
	}

	projectIDs := distinct(rows, func(r remote.ActivityLogRow) string { return r.ProjectID })
	milestoneIDs := distinct(rows, func(r remote.ActivityLogRow) string { return r.MilestoneID })
	taskIDs := distinct(rows, func(r remote.ActivityLogRow) string { return r.TaskID })

	var projects, milestones, tasks []remote.Ref
	g, gctx := errgroup.WithContext(ctx)
	if len(projectIDs) > 0 {
		g.Go(func() error {
			projects = e.lookup(gctx, remote.CollectionProjects, projectIDs)
			return nil
		})
	}
	if len(milestoneIDs) > 0 {
		g.Go(func() error {
			milestones = e.lookup(gctx, remote.CollectionMilestones, milestoneIDs)
			return nil
		})
	}
	if len(taskIDs) > 0 {
		g.Go(func() error {
			tasks = e.lookup(gctx, remote.CollectionTasks, taskIDs)
			return nil
		})
	}
	g.Wait()

	projectMap := refMap(projects)
	milestoneMap := refMap(milestones)
	taskMap := refMap(tasks)

	entries := make([]HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, HistoryEntry{
			ActivityLogRow: r,
			Project:        projectMap[r.ProjectID],
			Milestone:      milestoneMap[r.MilestoneID],
			Task:           taskMap[r.TaskID],
		})
	}
	return entries, nil
}

// lookup degrades to nothing on failure; history rows then render the
// reference as missing.
func (e *Engine) lookup(ctx context.Context, collection string, ids []string) []remote.Ref {
	refs, err := e.client.LookupRefs(ctx, collection, ids)
	if err != nil {
		e.log.Warnf("lookup %s: %v", collection, err)
		return nil
	}
	return refs
}

// SetSession installs the auth token on the client and persists it next to
// the pending logs.
func (e *Engine) SetSession(token string) error {
	e.client.SetToken(token)
	if err := e.store.SetSessionToken(token); err != nil {
		return fmt.Errorf("persist session token: %w", err)
	}
	return nil
}

func detailRows(logs []queue.ActivityLog) []remote.ActivityLogRow {
	rows := make([]remote.ActivityLogRow, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, remote.ActivityLogRow{
			UserID:          l.UserID,
			SessionID:       l.SessionID,
			KeystrokeCount:  l.KeystrokeCount,
			ClickCount:      l.ClickCount,
			DurationSeconds: l.DurationSeconds,
			LogTimestamp:    l.Timestamp,
			ProjectID:       l.ProjectID,
			MilestoneID:     l.MilestoneID,
			TaskID:          l.TaskID,
			WorkDescription: l.WorkDescription,
		})
	}
	return rows
}

// aggregateRows derives the work-update batch: only logs attributed to a
// task, duration rounded to minutes with a floor of one, dated by the log's
// calendar date.
func aggregateRows(logs []queue.ActivityLog) []remote.WorkUpdateRow {
	var rows []remote.WorkUpdateRow
	for _, l := range logs {
		if l.TaskID == "" {
			continue
		}
		desc := l.WorkDescription
		if desc == "" {
			desc = "Desktop Tracked Activity"
		}
		rows = append(rows, remote.WorkUpdateRow{
			DeveloperID:     l.UserID,
			ProjectID:       l.ProjectID,
			MilestoneID:     l.MilestoneID,
			TaskID:          l.TaskID,
			WorkDescription: desc,
			DurationMinutes: roundedMinutes(l.DurationSeconds),
			WorkDate:        l.Timestamp.UTC().Format("2006-01-02"),
		})
	}
	return rows
}

func roundedMinutes(seconds int) int {
	m := int(math.Round(float64(seconds) / 60))
	if m < 1 {
		return 1
	}
	return m
}

func distinct(rows []remote.ActivityLogRow, field func(remote.ActivityLogRow) string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range rows {
		id := field(r)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func refMap(refs []remote.Ref) map[string]*remote.Ref {
	m := make(map[string]*remote.Ref, len(refs))
	for i := range refs {
		m[refs[i].ID] = &refs[i]
	}
	return m
}
