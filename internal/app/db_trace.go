package app

import (
	"regexp"
	"strings"
)

// Archive payloads are JSONB blobs; an untruncated INSERT would drag whole
// run results into every span attribute.
const maxTracedQueryLength = 512

var tracedQueryWhitespace = regexp.MustCompile(`\s+`)

// formatDBQueryForTrace collapses whitespace and truncates the statement so
// archive spans stay readable.
func formatDBQueryForTrace(query string) string {
	normalized := tracedQueryWhitespace.ReplaceAllString(strings.TrimSpace(query), " ")
	if len(normalized) > maxTracedQueryLength {
		return normalized[:maxTracedQueryLength] + "..."
	}

	return normalized
}
