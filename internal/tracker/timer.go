package tracker

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/steveljko/timetick/internal/model"
	"github.com/steveljko/timetick/internal/optimistic"
)

type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Session is a snapshot of the timer for display.
type Session struct {
	State   State
	EntryID string
	Start   time.Time
	Elapsed time.Duration

	// Busy is set while a start or stop is waiting on the server.
	Busy bool
}

// Timer enforces a single running session. Transitions are applied to the
// timer first and undone if the entry mutation fails; only one transition may
// be in flight.
type Timer struct {
	entries *Entries
	clock   Clock
	logger  *slog.Logger

	mu      sync.Mutex
	state   State
	entryID string
	start   time.Time
	busy    bool
}

func NewTimer(entries *Entries, clock Clock, logger *slog.Logger) *Timer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Timer{entries: entries, clock: clock, logger: logger}
}

func (t *Timer) Session() Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Session{State: t.state, EntryID: t.entryID, Start: t.start, Busy: t.busy}
	if t.state == Running {
		s.Elapsed = max(t.clock.Now().Sub(t.start), 0)
	}
	return s
}

// Start opens a new entry for projectID, or for General when projectID is
// empty. The timer is Running as soon as Start is called and bound to the
// server's entry id on success; on failure it is Idle again.
func (t *Timer) Start(ctx context.Context, projectID string) (model.TimeEntry, error) {
	t.mu.Lock()
	if t.busy {
		t.mu.Unlock()
		return model.TimeEntry{}, invalid("timer", ErrTransitionInFlight)
	}
	if t.state == Running {
		t.mu.Unlock()
		return model.TimeEntry{}, invalid("timer", ErrTimerRunning)
	}
	now := t.clock.Now()
	tempID := optimistic.TempID(t.entries.View().Name(), now)
	t.state, t.entryID, t.start, t.busy = Running, tempID, now, true
	t.mu.Unlock()

	entry, err := t.entries.Start(ctx, projectID, now, tempID)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.busy = false
	if err != nil {
		t.state, t.entryID, t.start = Idle, "", time.Time{}
		return model.TimeEntry{}, err
	}
	t.entryID, t.start = entry.ID, entry.StartTime
	t.logger.Info("timer started", "entry", entry.ID, "project", entry.ProjectName)
	return entry, nil
}

// Stop closes the bound entry at the current time. On failure the timer is
// Running again with its original start time.
func (t *Timer) Stop(ctx context.Context) (model.TimeEntry, error) {
	t.mu.Lock()
	if t.busy {
		t.mu.Unlock()
		return model.TimeEntry{}, invalid("timer", ErrTransitionInFlight)
	}
	if t.state == Idle {
		t.mu.Unlock()
		return model.TimeEntry{}, invalid("timer", ErrTimerIdle)
	}
	id, start := t.entryID, t.start
	now := t.clock.Now()
	t.state, t.entryID, t.busy = Idle, "", true
	t.mu.Unlock()

	entry, err := t.entries.Finish(ctx, id, now)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.busy = false
	if err != nil {
		// the entry was closed somewhere else
		if errors.Is(err, ErrTimerIdle) {
			t.start = time.Time{}
			return model.TimeEntry{}, err
		}
		t.state, t.entryID, t.start = Running, id, start
		return model.TimeEntry{}, err
	}
	t.start = time.Time{}
	t.logger.Info("timer stopped", "entry", entry.ID, "duration", entry.Duration)
	return entry, nil
}

// Resume aligns an unbusy timer with entries: a running timer whose entry
// has been closed or is gone goes idle, and an idle timer binds to the open
// confirmed entry. It reports whether the timer resumed a session.
func (t *Timer) Resume(entries []model.TimeEntry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.busy {
		return false
	}

	if t.state == Running {
		i := slices.IndexFunc(entries, func(e model.TimeEntry) bool { return e.ID == t.entryID })
		if i >= 0 && entries[i].Open() {
			return false
		}
		if i < 0 {
			t.logger.Info("session entry no longer exists", "entry", t.entryID)
		} else {
			t.logger.Info("session was stopped elsewhere", "entry", t.entryID)
		}
		t.state, t.entryID, t.start = Idle, "", time.Time{}
	}

	i := slices.IndexFunc(entries, func(e model.TimeEntry) bool { return e.Open() && !e.Provisional() })
	if i < 0 {
		return false
	}
	open := entries[i]
	t.state, t.entryID, t.start = Running, open.ID, open.StartTime
	t.logger.Info("resumed running session", "entry", open.ID, "since", open.StartTime)
	return true
}

// Tick calls fn with the current session immediately and then every interval
// until ctx is done. It only reads the timer: durations are written by Stop.
func (t *Timer) Tick(ctx context.Context, every time.Duration, fn func(Session)) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	fn(t.Session())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn(t.Session())
		}
	}
}
