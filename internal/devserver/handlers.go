package devserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/steveljko/timetick/internal/api"
	"github.com/steveljko/timetick/internal/model"
)

const (
	defaultLimit   = 50
	maxUploadBytes = 10 << 20
)

// +-------------------------+
// |                         |
// |    Project Handlers     |
// |                         |
// +-------------------------+

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, paginate(r, s.projects))
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req api.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_name", "name is required")
		return
	}
	if req.Color == "" {
		req.Color = model.DefaultColor
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := api.ProjectRecord{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		CreatedAt:   s.now(),
	}
	s.projects = append([]api.ProjectRecord{p}, s.projects...)

	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.projectIndex(mux.Vars(r)["id"])
	if i < 0 {
		writeError(w, http.StatusNotFound, "not_found", "project not found")
		return
	}

	p := &s.projects[i]
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "invalid_name", "name is required")
			return
		}
		p.Name = name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Color != nil {
		p.Color = *req.Color
	}

	writeJSON(w, http.StatusOK, *p)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.projectIndex(mux.Vars(r)["id"])
	if i < 0 {
		writeError(w, http.StatusNotFound, "not_found", "project not found")
		return
	}
	s.projects = append(s.projects[:i], s.projects[i+1:]...)

	writeJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) projectIndex(id string) int {
	for i, p := range s.projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// +----------------------------+
// |                            |
// |    Time Entry Handlers     |
// |                            |
// +----------------------------+

func (s *Server) listTimeEntries(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]api.EntryRecord, 0, len(s.entries))
	for _, e := range s.entries {
		records = append(records, s.entryRecord(e))
	}
	writeJSON(w, http.StatusOK, paginate(r, records))
}

func (s *Server) createTimeEntry(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTimeEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.StartTime.IsZero() {
		writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ProjectID != "" && s.projectIndex(req.ProjectID) < 0 {
		writeError(w, http.StatusBadRequest, "unknown_project", "project not found")
		return
	}

	e := storedEntry{
		ID:        uuid.NewString(),
		ProjectID: req.ProjectID,
		StartTime: req.StartTime.UTC(),
		CreatedAt: s.now(),
	}
	s.entries = append([]storedEntry{e}, s.entries...)

	writeJSON(w, http.StatusCreated, s.entryRecord(e))
}

func (s *Server) updateTimeEntry(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateTimeEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := mux.Vars(r)["id"]
	i := -1
	for j, e := range s.entries {
		if e.ID == id {
			i = j
			break
		}
	}
	if i < 0 {
		writeError(w, http.StatusNotFound, "not_found", "time entry not found")
		return
	}

	e := &s.entries[i]
	switch {
	case e.EndTime != nil:
		writeError(w, http.StatusConflict, "already_stopped", "time entry already has an end time")
		return
	case req.EndTime.IsZero() || req.EndTime.Before(e.StartTime):
		writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must not precede start_time")
		return
	}

	end := req.EndTime.UTC()
	seconds := int64(end.Sub(e.StartTime) / time.Second)
	e.EndTime = &end
	e.Duration = &seconds

	writeJSON(w, http.StatusOK, s.entryRecord(*e))
}

func (s *Server) entryRecord(e storedEntry) api.EntryRecord {
	rec := api.EntryRecord{
		ID:        e.ID,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Duration:  e.Duration,
		CreatedAt: e.CreatedAt,
	}
	if i := s.projectIndex(e.ProjectID); e.ProjectID != "" && i >= 0 {
		p := s.projects[i]
		rec.Project = &p
	}
	return rec
}

// +--------------------------+
// |                          |
// |    Profile Handlers      |
// |                          |
// +--------------------------+

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		writeError(w, http.StatusNotFound, "not_found", "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, s.profileWithStats())
}

func (s *Server) createProfile(w http.ResponseWriter, r *http.Request) {
	var req api.CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_name", "name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		s.profile = &api.ProfileRecord{
			ID:        uuid.NewString(),
			CreatedAt: s.now(),
		}
	}
	s.profile.Name = req.Name

	writeJSON(w, http.StatusCreated, s.profileWithStats())
}

func (s *Server) uploadPicture(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form", err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file", err.Error())
		return
	}
	defer file.Close()

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_file", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		writeError(w, http.StatusNotFound, "not_found", "profile not found")
		return
	}

	s.uploads = append(s.uploads, Upload{
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     size,
	})
	s.profile.ProfilePictureURL = fmt.Sprintf("/pictures/%s%s", uuid.NewString(), filepath.Ext(header.Filename))

	writeJSON(w, http.StatusOK, s.profileWithStats())
}

func (s *Server) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board := []api.LeaderboardRecord{}
	if s.profile != nil {
		total, _, streak := s.stats()
		board = append(board, api.LeaderboardRecord{
			ID:            s.profile.ID,
			Name:          s.profile.Name,
			TotalTime:     total.Milliseconds(),
			Streak:        streak,
			Level:         level(total),
			AvatarURL:     s.profile.ProfilePictureURL,
			IsCurrentUser: true,
		})
	}
	writeJSON(w, http.StatusOK, board)
}

// profileWithStats must be called with s.mu held.
func (s *Server) profileWithStats() api.ProfileRecord {
	p := *s.profile
	total, sessions, streak := s.stats()

	days := map[string]bool{}
	for _, e := range s.entries {
		days[e.StartTime.Format(time.DateOnly)] = true
	}

	p.TotalHours = total.Hours()
	p.TotalSessions = sessions
	p.CurrentStreak = streak
	if len(days) > 0 {
		p.DailyAvg = total.Hours() / float64(len(days))
	}
	p.Rank = "#1"
	p.Level = level(total)
	p.LevelColor = levelColor(p.Level)
	return p
}

// stats returns the tracked total, closed session count and the number of
// consecutive days up to today with at least one entry.
func (s *Server) stats() (time.Duration, int, int) {
	var total time.Duration
	sessions := 0
	days := map[string]bool{}
	for _, e := range s.entries {
		days[e.StartTime.Format(time.DateOnly)] = true
		if e.Duration != nil {
			total += time.Duration(*e.Duration) * time.Second
			sessions++
		}
	}

	streak := 0
	for day := s.now(); days[day.Format(time.DateOnly)]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return total, sessions, streak
}

func level(total time.Duration) string {
	switch h := total.Hours(); {
	case h >= 100:
		return "Master"
	case h >= 50:
		return "Expert"
	case h >= 20:
		return "Pro"
	case h >= 5:
		return "Advanced"
	default:
		return "Beginner"
	}
}

func levelColor(level string) string {
	switch level {
	case "Master":
		return "#6f42c1"
	case "Expert":
		return "#dc3545"
	case "Pro":
		return "#fd7e14"
	case "Advanced":
		return "#28a745"
	default:
		return "#6c757d"
	}
}

func paginate[T any](r *http.Request, all []T) api.PageRecord[T] {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}

	start := min((page-1)*limit, len(all))
	end := min(start+limit, len(all))

	data := make([]T, end-start)
	copy(data, all[start:end])

	return api.PageRecord[T]{
		Data:       data,
		Limit:      limit,
		Page:       page,
		Total:      len(all),
		TotalPages: (len(all) + limit - 1) / limit,
	}
}
