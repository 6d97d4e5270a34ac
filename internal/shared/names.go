package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var nameFolder = cases.Fold()

// NormalizeName trims and case-folds an entity name so that uniqueness
// checks treat "Godown A" and "godown a" as the same value.
func NormalizeName(name string) string {
	return nameFolder.String(strings.TrimSpace(name))
}

// TitleName renders a display form for messages.
func TitleName(name string) string {
	return cases.Title(language.English).String(strings.TrimSpace(name))
}
