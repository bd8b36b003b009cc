// Package analysis runs the AI commentary pipeline: prompt building,
// provider calls, payload parsing, and persistence of analysis records.
package analysis

import (
	"strings"
)

// ExtractJSON locates a JSON object inside a model response. Providers
// often wrap JSON in markdown code fences or surround it with prose, so
// this scans for the outermost brace pair instead of trusting the whole
// string. Returns false when no object is present.
func ExtractJSON(raw string) (string, bool) {
	s := strings.TrimSpace(raw)

	// Strip markdown code fences
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}

	return s[start : end+1], true
}
