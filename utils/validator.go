// utils/validator.go - Input validation
package utils

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxNoteLength bounds reviewer notes and questionnaire remarks.
const MaxNoteLength = 5000

var notePolicy = bluemonday.StrictPolicy()

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return input
}

// SanitizeNote strips markup from free-text notes and truncates them to
// MaxNoteLength runes. Notes are rendered on public letters and dashboards.
func SanitizeNote(input string) string {
	cleaned := SanitizeInput(html.UnescapeString(notePolicy.Sanitize(SanitizeInput(input))))
	if utf8.RuneCountInString(cleaned) <= MaxNoteLength {
		return cleaned
	}
	runes := []rune(cleaned)
	return string(runes[:MaxNoteLength])
}
