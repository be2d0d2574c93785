package model

import "strings"

// GeneralLabel is shown for entries that belong to no project.
const GeneralLabel = "General"

// DefaultColor is the color of the General pseudo-project.
const DefaultColor = "#007bff"

// Swatch is the fixed palette offered when creating a project.
var Swatch = []string{
	"#007bff",
	"#28a745",
	"#ffc107",
	"#dc3545",
	"#6f42c1",
	"#fd7e14",
	"#20c997",
	"#6c757d",
}

// ValidColor accepts any swatch entry or an arbitrary #rrggbb hex value.
func ValidColor(c string) bool {
	if len(c) != 7 || c[0] != '#' {
		return false
	}
	for _, r := range strings.ToLower(c[1:]) {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
