package main

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/steveljko/timetick/internal/model"
	"github.com/steveljko/timetick/internal/tracker"
)

func PrintTable(w io.Writer, headers []string, rows [][]string, footers []string) {
	colWidths := make([]int, len(headers))
	for i, header := range headers {
		colWidths[i] = len(header)
	}
	for _, row := range append(slices.Clone(rows), footers) {
		for i, cell := range row {
			if i < len(colWidths) && len(cell) > colWidths[i] {
				colWidths[i] = len(cell)
			}
		}
	}

	// print header
	for i, header := range headers {
		fmt.Fprintf(w, "%-*s\t", colWidths[i], header)
	}
	fmt.Fprintln(w)

	// print rows
	for _, row := range rows {
		for i, cell := range row {
			fmt.Fprintf(w, "%-*s\t", colWidths[i], cell)
		}
		fmt.Fprintln(w)
	}

	// print footer
	if len(footers) == 0 {
		return
	}
	for i := range footers {
		fmt.Fprintf(w, "%-*s\t", colWidths[i], footers[i])
	}
	fmt.Fprintln(w)
}

func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}

// writes today's entries, oldest first, with a total footer
func PrintEntryLog(w io.Writer, entries []model.TimeEntry, now time.Time) {
	today := tracker.Today(entries, now)
	slices.SortFunc(today, func(a, b model.TimeEntry) int { return a.StartTime.Compare(b.StartTime) })

	headers := []string{"Project", "Start", "End", "Duration"}
	var rows [][]string
	var total time.Duration
	for _, e := range today {
		end, duration := "running", now.Sub(e.StartTime)
		if !e.Open() {
			end, duration = e.EndTime.In(now.Location()).Format(time.TimeOnly), e.Duration
		}
		total += duration

		project := e.ProjectName
		if e.Provisional() {
			project += " (pending)"
		}
		rows = append(rows, []string{
			project,
			e.StartTime.In(now.Location()).Format(time.TimeOnly),
			end,
			FormatDuration(duration),
		})
	}

	footers := []string{"", "", "Total:", FormatDuration(total)}
	PrintTable(w, headers, rows, footers)
}

func PrintProjects(w io.Writer, projects []model.Project) {
	headers := []string{"ID", "Name", "Color", "Created"}
	var rows [][]string
	for _, p := range projects {
		id := p.ID
		if p.Provisional() {
			id = "(pending)"
		}
		rows = append(rows, []string{id, p.Name, p.Color, p.CreatedAt.Format("Jan 02, 2006")})
	}
	PrintTable(w, headers, rows, nil)
}

func PrintLeaderboard(w io.Writer, board []model.LeaderboardEntry) {
	headers := []string{"#", "Name", "Total", "Streak", "Level"}
	var rows [][]string
	for _, e := range board {
		name := e.Name
		if e.IsCurrentUser {
			name += " (you)"
		}
		rows = append(rows, []string{
			fmt.Sprint(e.Rank),
			name,
			FormatDuration(e.TotalTime),
			fmt.Sprintf("%dd", e.Streak),
			e.Level,
		})
	}
	PrintTable(w, headers, rows, nil)
}
