package api

import (
	"time"

	"github.com/steveljko/timetick/internal/model"
)

// Wire shapes of the remote API.
type (
	ProjectRecord struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		Color       string    `json:"color"`
		CreatedAt   time.Time `json:"created_at"`
	}

	EntryRecord struct {
		ID        string         `json:"id"`
		Project   *ProjectRecord `json:"project"`
		StartTime time.Time      `json:"start_time"`
		EndTime   *time.Time     `json:"end_time,omitempty"`
		Duration  *int64         `json:"duration,omitempty"` // seconds
		CreatedAt time.Time      `json:"created_at"`
	}

	PageRecord[T any] struct {
		Data       []T `json:"data"`
		Limit      int `json:"limit"`
		Page       int `json:"page"`
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	}

	ProfileRecord struct {
		ID                string    `json:"id"`
		Name              string    `json:"name"`
		Email             string    `json:"email"`
		ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
		TotalHours        float64   `json:"total_hours"`
		TotalSessions     int       `json:"total_sessions"`
		CurrentStreak     int       `json:"current_streak"`
		DailyAvg          float64   `json:"dayily_avg"`
		Rank              string    `json:"rank"`
		LevelColor        string    `json:"level_color"`
		Level             string    `json:"level"`
		CreatedAt         time.Time `json:"created_at"`
	}

	LeaderboardRecord struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		TotalTime     int64  `json:"total_time"` // milliseconds
		Streak        int    `json:"streak"`
		Level         string `json:"level"`
		AvatarURL     string `json:"avatar_url,omitempty"`
		IsCurrentUser bool   `json:"is_current_user,omitempty"`
	}
)

// Request bodies.
type (
	CreateProjectRequest struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Color       string `json:"color"`
	}

	// UpdateProjectRequest carries only the fields being changed.
	UpdateProjectRequest struct {
		Name        *string `json:"name,omitempty"`
		Description *string `json:"description,omitempty"`
		Color       *string `json:"color,omitempty"`
	}

	CreateTimeEntryRequest struct {
		ProjectID string    `json:"project_id,omitempty"`
		StartTime time.Time `json:"start_time"`
	}

	UpdateTimeEntryRequest struct {
		EndTime time.Time `json:"end_time"`
	}

	CreateProfileRequest struct {
		Name string `json:"name"`
	}
)

// PageParams selects a page of a list call. Zero values are omitted from the
// query string.
type PageParams struct {
	Limit int
	Page  int
}

type Page[T any] struct {
	Data       []T
	Limit      int
	Page       int
	Total      int
	TotalPages int
}

// ImageAsset is what the image picker hands over: a local file plus the name
// and mime type to upload it under.
type ImageAsset struct {
	URI      string
	FileName string
	MimeType string
}

func (r ProjectRecord) Model() model.Project {
	return model.Project{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Color:       r.Color,
		CreatedAt:   r.CreatedAt,
		Status:      model.StatusConfirmed,
	}
}

// Model converts the server entry into the local shape, caching the project's
// display name and color and converting the duration to a time.Duration.
func (r EntryRecord) Model() model.TimeEntry {
	e := model.TimeEntry{
		ID:           r.ID,
		ProjectName:  model.GeneralLabel,
		ProjectColor: model.DefaultColor,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Status:       model.StatusConfirmed,
	}
	if r.Project != nil {
		e.ProjectID = r.Project.ID
		if r.Project.Name != "" {
			e.ProjectName = r.Project.Name
		}
		if r.Project.Color != "" {
			e.ProjectColor = r.Project.Color
		}
	}

	switch {
	case r.EndTime == nil:
		e.Duration = 0
	case r.Duration != nil:
		e.Duration = time.Duration(*r.Duration) * time.Second
	default:
		e.Duration = r.EndTime.Sub(r.StartTime)
	}
	return e
}

func (r ProfileRecord) Model() model.Profile {
	return model.Profile{
		ID:                r.ID,
		Name:              r.Name,
		Email:             r.Email,
		ProfilePictureURL: r.ProfilePictureURL,
		TotalHours:        r.TotalHours,
		TotalSessions:     r.TotalSessions,
		CurrentStreak:     r.CurrentStreak,
		DailyAverage:      r.DailyAvg,
		Rank:              r.Rank,
		Level:             r.Level,
		LevelColor:        r.LevelColor,
		CreatedAt:         r.CreatedAt,
	}
}

func (r LeaderboardRecord) Model(rank int) model.LeaderboardEntry {
	return model.LeaderboardEntry{
		Rank:          rank,
		ID:            r.ID,
		Name:          r.Name,
		TotalTime:     time.Duration(r.TotalTime) * time.Millisecond,
		Streak:        r.Streak,
		Level:         r.Level,
		AvatarURL:     r.AvatarURL,
		IsCurrentUser: r.IsCurrentUser,
	}
}

func convertPage[R any, T any](p PageRecord[R], convert func(R) T) Page[T] {
	out := Page[T]{
		Data:       make([]T, 0, len(p.Data)),
		Limit:      p.Limit,
		Page:       p.Page,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	}
	for _, r := range p.Data {
		out.Data = append(out.Data, convert(r))
	}
	return out
}
