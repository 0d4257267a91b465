package catalog

import "strings"

// NormalizeKey reduces a URL-like string to the canonical catalog lookup key:
// the lowercased last path segment, with any query string or fragment
// stripped. This key is the sole join between a query URL and a catalog
// entry, so case and trailing-query differences must never cause a miss.
//
// Inputs without a path segment (free text, bare slugs) come back lowercased
// and trimmed. NormalizeKey never fails and is idempotent.
func NormalizeKey(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return strings.ToLower(s)
}
