package tracker

import (
	"context"
	"slices"
	"strings"

	"github.com/steveljko/timetick/internal/api"
	"github.com/steveljko/timetick/internal/model"
	"github.com/steveljko/timetick/internal/optimistic"
)

// Projects is the project collection: an optimistic view backed by the
// local store and the remote gateway.
type Projects struct {
	view  *optimistic.View[model.Project]
	gw    ProjectGateway
	clock Clock
	limit int
}

func NewProjects(view *optimistic.View[model.Project], gw ProjectGateway, clock Clock, limit int) *Projects {
	return &Projects{view: view, gw: gw, clock: clock, limit: limit}
}

func (p *Projects) View() *optimistic.View[model.Project] { return p.view }

func (p *Projects) List() []model.Project { return p.view.Records() }

func (p *Projects) Find(id string) (model.Project, bool) { return p.view.Find(id) }

// FindByName looks a project up by its normalized display name.
func (p *Projects) FindByName(name string) (model.Project, bool) {
	projects := p.view.Records()
	if i := slices.IndexFunc(projects, func(pr model.Project) bool { return model.SameName(pr.Name, name) }); i >= 0 {
		return projects[i], true
	}
	return model.Project{}, false
}

// Refresh fetches every project page, falling back to the local store.
func (p *Projects) Refresh(ctx context.Context) optimistic.RefreshResult[model.Project] {
	return p.view.Refresh(ctx, func(ctx context.Context) ([]model.Project, error) {
		return fetchAll(ctx, p.limit, p.gw.ListProjects)
	})
}

type NewProject struct {
	Name        string
	Description string
	Color       string
}

// Create shows a provisional project at the top of the list and replaces it
// with the server's record once confirmed. An empty color picks the first
// swatch entry.
func (p *Projects) Create(ctx context.Context, in NewProject) (model.Project, error) {
	name := model.NormalizeName(in.Name)
	if name == "" {
		return model.Project{}, invalid("name", ErrEmptyName)
	}
	color := in.Color
	if color == "" {
		color = model.Swatch[0]
	}
	if !model.ValidColor(color) {
		return model.Project{}, invalid("color", ErrInvalidColor)
	}

	now := p.clock.Now()
	provisional := model.Project{
		ID:          optimistic.TempID(p.view.Name(), now),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Color:       color,
		CreatedAt:   now,
		Status:      model.StatusProvisional,
	}

	return optimistic.Mutate(ctx, p.view, optimistic.Mutation[model.Project, model.Project]{
		Kind: "create project",
		Apply: func(current []model.Project) ([]model.Project, error) {
			return append([]model.Project{provisional}, current...), nil
		},
		Remote: func(ctx context.Context) (model.Project, error) {
			return p.gw.CreateProject(ctx, api.CreateProjectRequest{
				Name:        provisional.Name,
				Description: provisional.Description,
				Color:       provisional.Color,
			})
		},
		Reconcile: func(speculative []model.Project, confirmed model.Project) []model.Project {
			return replaceByID(speculative, p.view.IndexOf, provisional.ID, confirmed)
		},
	})
}

// ProjectChanges lists the fields to change; nil fields are left alone.
type ProjectChanges struct {
	Name        *string
	Description *string
	Color       *string
}

func (p *Projects) Update(ctx context.Context, id string, ch ProjectChanges) (model.Project, error) {
	var req api.UpdateProjectRequest
	if ch.Name != nil {
		name := model.NormalizeName(*ch.Name)
		if name == "" {
			return model.Project{}, invalid("name", ErrEmptyName)
		}
		req.Name = &name
	}
	if ch.Description != nil {
		desc := strings.TrimSpace(*ch.Description)
		req.Description = &desc
	}
	if ch.Color != nil {
		if !model.ValidColor(*ch.Color) {
			return model.Project{}, invalid("color", ErrInvalidColor)
		}
		req.Color = ch.Color
	}

	return optimistic.Mutate(ctx, p.view, optimistic.Mutation[model.Project, model.Project]{
		Kind: "update project",
		Apply: func(current []model.Project) ([]model.Project, error) {
			i := p.view.IndexOf(current, id)
			if i < 0 {
				return nil, invalid("project", ErrProjectNotFound)
			}
			if current[i].Provisional() {
				return nil, invalid("project", ErrProjectPending)
			}
			if req.Name != nil {
				current[i].Name = *req.Name
			}
			if req.Description != nil {
				current[i].Description = *req.Description
			}
			if req.Color != nil {
				current[i].Color = *req.Color
			}
			return current, nil
		},
		Remote: func(ctx context.Context) (model.Project, error) {
			return p.gw.UpdateProject(ctx, id, req)
		},
		Reconcile: func(speculative []model.Project, confirmed model.Project) []model.Project {
			return replaceByID(speculative, p.view.IndexOf, id, confirmed)
		},
	})
}

// Delete removes a project. The last remaining project cannot be deleted.
func (p *Projects) Delete(ctx context.Context, id string) error {
	_, err := optimistic.Mutate(ctx, p.view, optimistic.Mutation[model.Project, struct{}]{
		Kind: "delete project",
		Apply: func(current []model.Project) ([]model.Project, error) {
			i := p.view.IndexOf(current, id)
			if i < 0 {
				return nil, invalid("project", ErrProjectNotFound)
			}
			if len(current) == 1 {
				return nil, invalid("project", ErrLastProject)
			}
			if current[i].Provisional() {
				return nil, invalid("project", ErrProjectPending)
			}
			return slices.Delete(current, i, i+1), nil
		},
		Remote: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, p.gw.DeleteProject(ctx, id)
		},
	})
	return err
}
