// Package sanitize cleans user-facing strings for filesystem use.
package sanitize

import (
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// Filename replaces characters that are unsafe in file names with underscores
// and trims surrounding whitespace. An empty result falls back to "untitled".
func Filename(name string) string {
	cleaned := strings.TrimSpace(unsafeChars.ReplaceAllString(name, "_"))
	if cleaned == "" {
		return "untitled"
	}

	return cleaned
}
