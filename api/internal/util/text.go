package util

import "strings"

// StripCodeFences removes a surrounding markdown code fence from a model
// answer. Vision models wrap JSON in ```json fences often enough that every
// parse path has to tolerate it.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
