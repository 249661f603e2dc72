// Package tracker owns the session state machine: it turns raw input events
// and timer ticks into a single durable activity log per session.
package tracker

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/pulsetrack/internal/logging"
	"github.com/sadopc/pulsetrack/internal/queue"
)

// TaskContext is the work the session is attributed to. Immutable once a
// session starts.
type TaskContext struct {
	ProjectID       string
	MilestoneID     string
	TaskID          string
	WorkDescription string
}

// Stats is a point-in-time read of the current session.
type Stats struct {
	Keystrokes     int
	Clicks         int
	ElapsedSeconds int
	IsTracking     bool
	IsPaused       bool
	IsIdle         bool
}

// ScreenshotRequest is emitted when the screenshot interval elapses; the
// screen-capture collaborator consumes it.
type ScreenshotRequest struct {
	TaskContext
	SessionID string
}

// Hooks are the tracker's outbound signals. Nil fields are skipped. They are
// invoked without the tracker lock held, so callbacks may call back into the
// tracker.
type Hooks struct {
	ScreenshotDue func(ScreenshotRequest)
	IdleChanged   func(bool)
	PauseChanged  func(bool)
}

// Tracker is the session state machine. One session at a time; counters
// reset only at session start.
type Tracker struct {
	mu    sync.Mutex
	store *queue.Store
	input InputSource
	log   *logging.Logger
	hooks Hooks

	idleThreshold      time.Duration
	screenshotInterval time.Duration

	userID    string
	sessionID string
	taskCtx   TaskContext

	tracking bool
	paused   bool
	idle     bool

	keystrokes int
	clicks     int
	elapsed    int

	lastActivity   time.Time
	lastScreenshot time.Time

	done chan struct{}
}

func New(store *queue.Store, input InputSource, log *logging.Logger, hooks Hooks, idleThreshold, screenshotInterval time.Duration) *Tracker {
	if idleThreshold <= 0 {
		idleThreshold = 5 * time.Minute
	}
	if screenshotInterval <= 0 {
		screenshotInterval = 5 * time.Minute
	}
	return &Tracker{
		store:              store,
		input:              input,
		log:                log,
		hooks:              hooks,
		idleThreshold:      idleThreshold,
		screenshotInterval: screenshotInterval,
	}
}

func (t *Tracker) SetUserID(id string) {
	t.mu.Lock()
	t.userID = id
	t.mu.Unlock()
}

// Start begins a new session. Starting while paused resumes instead; starting
// while already tracking, or without a user id, is a no-op.
func (t *Tracker) Start(ctx TaskContext) {
	t.mu.Lock()
	if t.tracking {
		paused := t.paused
		t.mu.Unlock()
		if paused {
			t.Resume()
		}
		return
	}
	if t.userID == "" {
		t.mu.Unlock()
		return
	}

	now := time.Now()
	t.tracking = true
	t.paused = false
	t.idle = false
	t.sessionID = uuid.NewString()
	t.taskCtx = ctx
	t.keystrokes = 0
	t.clicks = 0
	t.elapsed = 0
	t.lastActivity = now
	t.lastScreenshot = now

	done := make(chan struct{})
	t.done = done
	t.mu.Unlock()

	// Capture failure is not fatal: the session still accrues time, it just
	// counts no input.
	if err := t.input.Start(t.handleInput); err != nil {
		t.log.Errorf("input capture failed to start: %v", err)
	}
	go t.run(done)
}

// run drives the 1-second elapsed tick and the 10-second idle check until
// the session's done channel closes.
func (t *Tracker) run(done chan struct{}) {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	idle := time.NewTicker(10 * time.Second)
	defer idle.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-tick.C:
			t.tick(now)
		case now := <-idle.C:
			t.checkIdle(now)
		}
	}
}

// tick advances elapsed time and fires the screenshot trigger. While paused
// it does nothing at all: no accrual, no screenshot check.
func (t *Tracker) tick(now time.Time) {
	t.mu.Lock()
	if !t.tracking || t.paused {
		t.mu.Unlock()
		return
	}
	t.elapsed++

	if now.Sub(t.lastScreenshot) >= t.screenshotInterval {
		t.lastScreenshot = now
		req := ScreenshotRequest{TaskContext: t.taskCtx, SessionID: t.sessionID}
		hook := t.hooks.ScreenshotDue
		t.mu.Unlock()
		if hook != nil {
			hook(req)
		}
		return
	}
	t.mu.Unlock()
}

// checkIdle flips the idle flag after the threshold passes with no input.
// Only input events clear it; pausing and resuming never touch it.
func (t *Tracker) checkIdle(now time.Time) {
	t.mu.Lock()
	if !t.tracking || t.paused {
		t.mu.Unlock()
		return
	}
	if now.Sub(t.lastActivity) > t.idleThreshold && !t.idle {
		t.idle = true
		hook := t.hooks.IdleChanged
		t.mu.Unlock()
		t.log.Infof("session idle")
		if hook != nil {
			hook(true)
		}
		return
	}
	t.mu.Unlock()
}

func (t *Tracker) handleInput(kind EventKind) {
	t.mu.Lock()
	if !t.tracking || t.paused {
		t.mu.Unlock()
		return
	}
	switch kind {
	case KeyDown:
		t.keystrokes++
	case MouseDown:
		t.clicks++
	}
	t.lastActivity = time.Now()
	wasIdle := t.idle
	t.idle = false
	hook := t.hooks.IdleChanged
	t.mu.Unlock()

	if wasIdle && hook != nil {
		hook(false)
	}
}

// Pause halts elapsed-time accrual and screenshot checks. Input capture and
// the idle ticker keep running (the idle check no-ops while paused).
func (t *Tracker) Pause() {
	t.mu.Lock()
	if !t.tracking || t.paused {
		t.mu.Unlock()
		return
	}
	t.paused = true
	hook := t.hooks.PauseChanged
	t.mu.Unlock()
	if hook != nil {
		hook(true)
	}
}

func (t *Tracker) Resume() {
	t.mu.Lock()
	if !t.tracking || !t.paused {
		t.mu.Unlock()
		return
	}
	t.paused = false
	hook := t.hooks.PauseChanged
	t.mu.Unlock()
	if hook != nil {
		hook(false)
	}
}

// Stop ends the session: snapshot the counters into an activity log, append
// it to the pending queue, then tear everything down. Teardown runs even
// when the append fails; the append error is returned so the caller knows
// the log was lost.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	if !t.tracking {
		t.mu.Unlock()
		return nil
	}

	var appendErr error
	if t.elapsed != 0 || t.keystrokes != 0 || t.clicks != 0 {
		log := queue.ActivityLog{
			ID:              uuid.NewString(),
			UserID:          t.userID,
			SessionID:       t.sessionID,
			KeystrokeCount:  t.keystrokes,
			ClickCount:      t.clicks,
			DurationSeconds: t.elapsed,
			Timestamp:       time.Now().UTC(),
			ProjectID:       t.taskCtx.ProjectID,
			MilestoneID:     t.taskCtx.MilestoneID,
			TaskID:          t.taskCtx.TaskID,
			WorkDescription: t.taskCtx.WorkDescription,
		}
		if appendErr = t.store.Append(log); appendErr != nil {
			t.log.Errorf("persist session log: %v", appendErr)
		}
	}

	if err := t.input.Stop(); err != nil {
		t.log.Warnf("input capture failed to stop: %v", err)
	}
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
	t.tracking = false
	t.paused = false
	t.idle = false
	t.keystrokes = 0
	t.clicks = 0
	t.elapsed = 0
	t.mu.Unlock()

	return appendErr
}

// Reset zeroes elapsed time and both counters without touching tracking or
// pause state or the session id. Callable mid-session, which discards the
// accrual so far.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.keystrokes = 0
	t.clicks = 0
	t.elapsed = 0
	t.mu.Unlock()
}

func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		Keystrokes:     t.keystrokes,
		Clicks:         t.clicks,
		ElapsedSeconds: t.elapsed,
		IsTracking:     t.tracking,
		IsPaused:       t.paused,
		IsIdle:         t.idle,
	}
}

// SessionID returns the current (or most recent) session id.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}
