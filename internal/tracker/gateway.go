package tracker

import (
	"context"
	"time"

	"github.com/steveljko/timetick/internal/api"
	"github.com/steveljko/timetick/internal/model"
)

type ProjectGateway interface {
	ListProjects(ctx context.Context, params api.PageParams) (api.Page[model.Project], error)
	CreateProject(ctx context.Context, params api.CreateProjectRequest) (model.Project, error)
	UpdateProject(ctx context.Context, id string, params api.UpdateProjectRequest) (model.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

type EntryGateway interface {
	ListTimeEntries(ctx context.Context, params api.PageParams) (api.Page[model.TimeEntry], error)
	CreateTimeEntry(ctx context.Context, params api.CreateTimeEntryRequest) (model.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, id string, params api.UpdateTimeEntryRequest) (model.TimeEntry, error)
}

type ProfileGateway interface {
	GetProfile(ctx context.Context) (model.Profile, error)
	CreateProfile(ctx context.Context, params api.CreateProfileRequest) (model.Profile, error)
	UploadProfilePicture(ctx context.Context, asset api.ImageAsset) (model.Profile, error)
	GetLeaderboard(ctx context.Context) ([]model.LeaderboardEntry, error)
}

// Gateway is the remote API as the tracker uses it. *api.Client satisfies it.
type Gateway interface {
	ProjectGateway
	EntryGateway
	ProfileGateway
}

// Reachability annotates status with connectivity. It never gates requests.
type Reachability interface {
	Online() bool
}

type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
