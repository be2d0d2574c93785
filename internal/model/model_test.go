package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidColor(t *testing.T) {
	for _, c := range Swatch {
		assert.True(t, ValidColor(c), c)
	}

	assert.True(t, ValidColor("#111111"))
	assert.True(t, ValidColor("#ABCDEF"))
	assert.False(t, ValidColor("111111"))
	assert.False(t, ValidColor("#12345"))
	assert.False(t, ValidColor("#12345g"))
	assert.False(t, ValidColor(""))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Work", NormalizeName("  Work \n"))

	// "é" as a single code point and as e + combining acute accent
	assert.True(t, SameName("Caf\u00e9", "Cafe\u0301"))
	assert.False(t, SameName("Work", "work"))
}

func TestTimeEntryOpen(t *testing.T) {
	start := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	e := TimeEntry{ID: "1", StartTime: start}
	assert.True(t, e.Open())

	end := start.Add(time.Hour)
	e.EndTime = &end
	assert.False(t, e.Open())
}
