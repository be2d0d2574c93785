package tracker

import "github.com/steveljko/timetick/internal/model"

// SyncEntryProjects refreshes the project name and color cached on each entry
// from the current projects. An entry is matched by project id, then by its
// cached name; an entry with no match falls back to the General label and the
// default color. Nothing but the cached name and color is touched. It reports
// whether any entry changed.
func SyncEntryProjects(entries []model.TimeEntry, projects []model.Project) ([]model.TimeEntry, bool) {
	byID := make(map[string]model.Project, len(projects))
	byName := make(map[string]model.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
		if _, seen := byName[model.NormalizeName(p.Name)]; !seen {
			byName[model.NormalizeName(p.Name)] = p
		}
	}

	changed := false
	for i, e := range entries {
		name, color := model.GeneralLabel, model.DefaultColor
		if p, ok := byID[e.ProjectID]; ok && e.ProjectID != "" {
			name, color = p.Name, p.Color
		} else if p, ok := byName[model.NormalizeName(e.ProjectName)]; ok {
			name, color = p.Name, p.Color
		}

		if e.ProjectName == name && e.ProjectColor == color {
			continue
		}
		entries[i].ProjectName = name
		entries[i].ProjectColor = color
		changed = true
	}
	return entries, changed
}
