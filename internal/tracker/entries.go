package tracker

import (
	"context"
	"slices"
	"time"

	"github.com/steveljko/timetick/internal/api"
	"github.com/steveljko/timetick/internal/model"
	"github.com/steveljko/timetick/internal/optimistic"
)

// Entries is the time entry collection. Starting and finishing entries goes
// through the Timer; Entries only guards the collection itself.
type Entries struct {
	view     *optimistic.View[model.TimeEntry]
	gw       EntryGateway
	projects *Projects
	limit    int
}

func NewEntries(view *optimistic.View[model.TimeEntry], gw EntryGateway, projects *Projects, limit int) *Entries {
	return &Entries{view: view, gw: gw, projects: projects, limit: limit}
}

func (e *Entries) View() *optimistic.View[model.TimeEntry] { return e.view }

func (e *Entries) List() []model.TimeEntry { return e.view.Records() }

func (e *Entries) Find(id string) (model.TimeEntry, bool) { return e.view.Find(id) }

// Open returns the running entry, if any.
func (e *Entries) Open() (model.TimeEntry, bool) {
	return openEntry(e.view.Records())
}

func (e *Entries) Refresh(ctx context.Context) optimistic.RefreshResult[model.TimeEntry] {
	return e.view.Refresh(ctx, func(ctx context.Context) ([]model.TimeEntry, error) {
		return fetchAll(ctx, e.limit, e.gw.ListTimeEntries)
	})
}

// Start creates an open entry under tempID. An empty projectID files the
// entry under General. It is rejected while another entry is open.
func (e *Entries) Start(ctx context.Context, projectID string, at time.Time, tempID string) (model.TimeEntry, error) {
	return optimistic.Mutate(ctx, e.view, optimistic.Mutation[model.TimeEntry, model.TimeEntry]{
		Kind: "start entry",
		Apply: func(current []model.TimeEntry) ([]model.TimeEntry, error) {
			if _, ok := openEntry(current); ok {
				return nil, invalid("timer", ErrTimerRunning)
			}
			entry := model.TimeEntry{
				ID:           tempID,
				ProjectName:  model.GeneralLabel,
				ProjectColor: model.DefaultColor,
				StartTime:    at,
				Status:       model.StatusProvisional,
			}
			if projectID != "" {
				p, ok := e.projects.Find(projectID)
				if !ok {
					return nil, invalid("project", ErrProjectNotFound)
				}
				if p.Provisional() {
					return nil, invalid("project", ErrProjectPending)
				}
				entry.ProjectID, entry.ProjectName, entry.ProjectColor = p.ID, p.Name, p.Color
			}
			return append([]model.TimeEntry{entry}, current...), nil
		},
		Remote: func(ctx context.Context) (model.TimeEntry, error) {
			return e.gw.CreateTimeEntry(ctx, api.CreateTimeEntryRequest{ProjectID: projectID, StartTime: at})
		},
		Reconcile: func(speculative []model.TimeEntry, confirmed model.TimeEntry) []model.TimeEntry {
			return e.reconcile(speculative, tempID, confirmed)
		},
	})
}

// Finish closes the open entry id at end. The duration is end minus start.
func (e *Entries) Finish(ctx context.Context, id string, end time.Time) (model.TimeEntry, error) {
	return optimistic.Mutate(ctx, e.view, optimistic.Mutation[model.TimeEntry, model.TimeEntry]{
		Kind: "finish entry",
		Apply: func(current []model.TimeEntry) ([]model.TimeEntry, error) {
			i := e.view.IndexOf(current, id)
			if i < 0 {
				return nil, invalid("entry", ErrEntryNotFound)
			}
			if !current[i].Open() {
				return nil, invalid("timer", ErrTimerIdle)
			}
			if current[i].Provisional() {
				return nil, invalid("timer", ErrTransitionInFlight)
			}
			if end.Before(current[i].StartTime) {
				end = current[i].StartTime
			}
			current[i].EndTime = &end
			current[i].Duration = end.Sub(current[i].StartTime)
			return current, nil
		},
		Remote: func(ctx context.Context) (model.TimeEntry, error) {
			return e.gw.UpdateTimeEntry(ctx, id, api.UpdateTimeEntryRequest{EndTime: end})
		},
		Reconcile: func(speculative []model.TimeEntry, confirmed model.TimeEntry) []model.TimeEntry {
			return e.reconcile(speculative, id, confirmed)
		},
	})
}

// SyncProjects rewrites the cached project name and color of every entry.
func (e *Entries) SyncProjects(ctx context.Context, projects []model.Project) error {
	return e.view.Transform(ctx, func(current []model.TimeEntry) ([]model.TimeEntry, bool) {
		return SyncEntryProjects(current, projects)
	})
}

// reconcile installs the server record in place of id. A server that does not
// echo the project keeps the one shown speculatively.
func (e *Entries) reconcile(speculative []model.TimeEntry, id string, confirmed model.TimeEntry) []model.TimeEntry {
	if i := e.view.IndexOf(speculative, id); i >= 0 {
		prev := speculative[i]
		if confirmed.ProjectID == "" && prev.ProjectID != "" {
			confirmed.ProjectID = prev.ProjectID
			confirmed.ProjectName = prev.ProjectName
			confirmed.ProjectColor = prev.ProjectColor
		}
	}
	return replaceByID(speculative, e.view.IndexOf, id, confirmed)
}

func openEntry(entries []model.TimeEntry) (model.TimeEntry, bool) {
	if i := slices.IndexFunc(entries, model.TimeEntry.Open); i >= 0 {
		return entries[i], true
	}
	return model.TimeEntry{}, false
}
