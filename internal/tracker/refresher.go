package tracker

import (
	"context"
	"time"
)

// Refresher polls the server on a schedule. A failed refresh is not retried:
// the next tick is the retry.
type Refresher struct {
	tracker *Tracker

	ProjectsEvery    time.Duration
	EntriesEvery     time.Duration
	LeaderboardEvery time.Duration
}

func NewRefresher(t *Tracker, projectsEvery, entriesEvery, leaderboardEvery time.Duration) *Refresher {
	return &Refresher{
		tracker:          t,
		ProjectsEvery:    projectsEvery,
		EntriesEvery:     entriesEvery,
		LeaderboardEvery: leaderboardEvery,
	}
}

// Run refreshes until ctx is done. A zero interval disables that schedule.
func (r *Refresher) Run(ctx context.Context) error {
	projects, stopProjects := ticker(r.ProjectsEvery)
	defer stopProjects()
	entries, stopEntries := ticker(r.EntriesEvery)
	defer stopEntries()
	leaderboard, stopLeaderboard := ticker(r.LeaderboardEvery)
	defer stopLeaderboard()

	t := r.tracker
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-projects:
			res := t.Projects.Refresh(ctx)
			t.logger.Debug("projects refreshed", "records", len(res.Records), "stale", res.Stale, "discarded", res.Discarded)
		case <-entries:
			res := t.Entries.Refresh(ctx)
			t.Timer.Resume(t.Entries.List())
			t.logger.Debug("entries refreshed", "records", len(res.Records), "stale", res.Stale, "discarded", res.Discarded)
		case <-leaderboard:
			if _, stale, err := t.Leaderboard(ctx); err != nil || stale {
				t.logger.Debug("leaderboard refresh failed", "err", err)
			}
		}
	}
}

// ticker returns a nil channel for a non-positive interval.
func ticker(every time.Duration) (<-chan time.Time, func()) {
	if every <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(every)
	return t.C, t.Stop
}
