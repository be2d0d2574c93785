// Package tracker is the offline-first core of timetick: project and time
// entry collections kept in sync with the server, the single running timer,
// and the profile and leaderboard reads.
package tracker

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/steveljko/timetick/internal/api"
	"github.com/steveljko/timetick/internal/model"
	"github.com/steveljko/timetick/internal/optimistic"
	"github.com/steveljko/timetick/internal/store"
)

const DefaultPageLimit = 50

type Options struct {
	Gateway Gateway
	Backend store.Backend
	Clock   Clock
	Logger  *slog.Logger

	// PageLimit is the page size used when refreshing collections.
	PageLimit int

	// Reachability reports connectivity for Status. Optional.
	Reachability Reachability
}

type Tracker struct {
	Projects *Projects
	Entries  *Entries
	Timer    *Timer

	profile     *optimistic.View[model.Profile]
	leaderboard *optimistic.View[model.LeaderboardEntry]

	gw     Gateway
	clock  Clock
	reach  Reachability
	logger *slog.Logger
}

func New(opts Options) *Tracker {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PageLimit <= 0 {
		opts.PageLimit = DefaultPageLimit
	}
	logger := opts.Logger

	projects := NewProjects(
		optimistic.New(store.NewCollection[model.Project](opts.Backend, store.ProjectsCollection, logger),
			func(p model.Project) string { return p.ID }, logger),
		opts.Gateway, opts.Clock, opts.PageLimit)
	entries := NewEntries(
		optimistic.New(store.NewCollection[model.TimeEntry](opts.Backend, store.TimeEntriesCollection, logger),
			func(e model.TimeEntry) string { return e.ID }, logger),
		opts.Gateway, projects, opts.PageLimit)

	t := &Tracker{
		Projects: projects,
		Entries:  entries,
		Timer:    NewTimer(entries, opts.Clock, logger),
		profile: optimistic.New(store.NewCollection[model.Profile](opts.Backend, store.ProfileCollection, logger),
			func(p model.Profile) string { return p.ID }, logger),
		leaderboard: optimistic.New(store.NewCollection[model.LeaderboardEntry](opts.Backend, store.LeaderboardCollection, logger),
			func(e model.LeaderboardEntry) string { return e.ID }, logger),
		gw:     opts.Gateway,
		clock:  opts.Clock,
		reach:  opts.Reachability,
		logger: logger,
	}

	// project changes are mirrored into the entries' display cache
	projects.View().OnSettle(func(ctx context.Context, current []model.Project) {
		if err := entries.SyncProjects(ctx, current); err != nil {
			logger.Warn("failed to sync entry projects", "err", err)
		}
	})
	return t
}

// Load shows the local store and then refreshes from the server, projects
// before entries. Provisional records left by an interrupted run were never
// confirmed and are dropped. A session left running is resumed.
func (t *Tracker) Load(ctx context.Context) (Report, error) {
	if _, err := t.Projects.View().LoadCache(ctx); err != nil {
		return Report{}, err
	}
	if err := t.Projects.View().Transform(ctx, dropProvisional(t.logger, store.ProjectsCollection, model.Project.Provisional)); err != nil {
		return Report{}, err
	}
	if _, err := t.Entries.View().LoadCache(ctx); err != nil {
		return Report{}, err
	}
	if err := t.Entries.View().Transform(ctx, dropProvisional(t.logger, store.TimeEntriesCollection, model.TimeEntry.Provisional)); err != nil {
		return Report{}, err
	}
	return t.Refresh(ctx), nil
}

func dropProvisional[T any](logger *slog.Logger, name string, provisional func(T) bool) func([]T) ([]T, bool) {
	return func(records []T) ([]T, bool) {
		n := len(records)
		records = slices.DeleteFunc(records, provisional)
		if dropped := n - len(records); dropped > 0 {
			logger.Info("dropped unconfirmed records", "collection", name, "count", dropped)
			return records, true
		}
		return records, false
	}
}

// Report describes the outcome of a Refresh.
type Report struct {
	Projects optimistic.RefreshResult[model.Project]
	Entries  optimistic.RefreshResult[model.TimeEntry]
}

// Stale reports whether either collection is being served from the local
// store.
func (r Report) Stale() bool { return r.Projects.Stale || r.Entries.Stale }

// Refresh reloads projects and then entries, and aligns the timer with the
// result.
func (t *Tracker) Refresh(ctx context.Context) Report {
	var r Report
	r.Projects = t.Projects.Refresh(ctx)
	r.Entries = t.Entries.Refresh(ctx)
	t.Timer.Resume(t.Entries.List())
	return r
}

type Status struct {
	Online        bool
	Syncing       bool
	ProjectsStale bool
	EntriesStale  bool
	Timer         Session
}

func (t *Tracker) Status() Status {
	s := Status{
		Online:        true,
		Syncing:       t.Projects.View().Busy() || t.Entries.View().Busy(),
		ProjectsStale: t.Projects.View().Stale(),
		EntriesStale:  t.Entries.View().Stale(),
		Timer:         t.Timer.Session(),
	}
	if t.reach != nil {
		s.Online = t.reach.Online()
	}
	return s
}

// Profile fetches the signed-in user's profile, falling back to the last one
// seen. stale is set when the fallback was used.
func (t *Tracker) Profile(ctx context.Context) (p model.Profile, stale bool, err error) {
	res := t.profile.Refresh(ctx, func(ctx context.Context) ([]model.Profile, error) {
		p, err := t.gw.GetProfile(ctx)
		if err != nil {
			return nil, err
		}
		return []model.Profile{p}, nil
	})
	if len(res.Records) == 0 {
		if res.Err == nil {
			res.Err = ErrNoProfile
		}
		return model.Profile{}, res.Stale, res.Err
	}
	return res.Records[0], res.Stale, nil
}

func (t *Tracker) CreateProfile(ctx context.Context, name string) (model.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Profile{}, invalid("name", ErrEmptyName)
	}
	p, err := t.gw.CreateProfile(ctx, api.CreateProfileRequest{Name: name})
	if err != nil {
		return model.Profile{}, err
	}
	t.rememberProfile(ctx, p)
	return p, nil
}

func (t *Tracker) UploadProfilePicture(ctx context.Context, asset api.ImageAsset) (model.Profile, error) {
	p, err := t.gw.UploadProfilePicture(ctx, asset)
	if err != nil {
		return model.Profile{}, err
	}
	t.rememberProfile(ctx, p)
	return p, nil
}

func (t *Tracker) rememberProfile(ctx context.Context, p model.Profile) {
	err := t.profile.Transform(ctx, func([]model.Profile) ([]model.Profile, bool) {
		return []model.Profile{p}, true
	})
	if err != nil {
		t.logger.Warn("failed to cache profile", "err", err)
	}
}

// Leaderboard fetches the ranking, falling back to the last one seen.
func (t *Tracker) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, bool, error) {
	res := t.leaderboard.Refresh(ctx, t.gw.GetLeaderboard)
	if res.Stale && len(res.Records) == 0 {
		return nil, true, res.Err
	}
	return res.Records, res.Stale, nil
}
