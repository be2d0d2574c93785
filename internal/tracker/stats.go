package tracker

import (
	"time"

	"github.com/steveljko/timetick/internal/model"
)

// Today returns the entries started on now's calendar day, in now's location,
// keeping their order.
func Today(entries []model.TimeEntry, now time.Time) []model.TimeEntry {
	var today []model.TimeEntry
	for _, e := range entries {
		if sameDay(e.StartTime, now) {
			today = append(today, e)
		}
	}
	return today
}

// TodayTotal sums the entries started on now's calendar day. A running entry
// counts up to now.
func TodayTotal(entries []model.TimeEntry, now time.Time) time.Duration {
	var total time.Duration
	for _, e := range Today(entries, now) {
		if e.Open() {
			total += max(now.Sub(e.StartTime), 0)
			continue
		}
		total += e.Duration
	}
	return total
}

// TodaySessions counts the entries started on now's calendar day.
func TodaySessions(entries []model.TimeEntry, now time.Time) int {
	return len(Today(entries, now))
}

func sameDay(t, now time.Time) bool {
	y1, m1, d1 := t.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
