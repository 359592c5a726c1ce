package strings

import (
	"strings"
)

// DefaultErrorMaxLen is the default width of error text in status tables.
const DefaultErrorMaxLen = 60

// MinTruncateLen is the minimum maxLen value for Truncate.
// Values smaller than this would not leave room for meaningful content plus "...".
const MinTruncateLen = 4

// Truncate collapses s to a single line and cuts it to maxLen runes, adding
// "..." when it had to cut. Token endpoint errors carry the response body on
// a second line, so this is what status tables and log summaries use.
//
// maxLen values below MinTruncateLen are clamped to MinTruncateLen.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// FirstLine returns s up to the first line break, trimmed.
func FirstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
