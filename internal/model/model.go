package model

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Status tells a locally synthesized record apart from one the server has
// acknowledged.
type Status string

const (
	StatusProvisional Status = "provisional"
	StatusConfirmed   Status = "confirmed"
)

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	Status      Status    `json:"status"`
}

func (p Project) Provisional() bool { return p.Status == StatusProvisional }

// TimeEntry is a tracked session. ProjectName and ProjectColor are a display
// cache of the project at creation time, not a live reference.
type TimeEntry struct {
	ID           string        `json:"id"`
	ProjectID    string        `json:"project_id,omitempty"`
	ProjectName  string        `json:"project"`
	ProjectColor string        `json:"color"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      *time.Time    `json:"end_time,omitempty"`
	Duration     time.Duration `json:"duration"`
	Status       Status        `json:"status"`
}

// Open reports whether the entry is still running.
func (e TimeEntry) Open() bool { return e.EndTime == nil }

func (e TimeEntry) Provisional() bool { return e.Status == StatusProvisional }

type Profile struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
	TotalHours        float64   `json:"total_hours"`
	TotalSessions     int       `json:"total_sessions"`
	CurrentStreak     int       `json:"current_streak"`
	DailyAverage      float64   `json:"daily_avg"`
	Rank              string    `json:"rank"`
	Level             string    `json:"level"`
	LevelColor        string    `json:"level_color"`
	CreatedAt         time.Time `json:"created_at"`
}

type LeaderboardEntry struct {
	Rank          int           `json:"rank"`
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	TotalTime     time.Duration `json:"total_time"`
	Streak        int           `json:"streak"`
	Level         string        `json:"level"`
	AvatarURL     string        `json:"avatar_url,omitempty"`
	IsCurrentUser bool          `json:"is_current_user"`
}

// NormalizeName trims a project name and puts it in NFC form so that names
// typed on different keyboards compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// SameName compares two project display names after normalization.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
