// Package scrape extracts product page fragments from live pages when the
// catalog has no record for a URL.
package scrape

import "context"

// DescriptionUnavailable is the sentinel used when the description fragment
// could not be read. A missing description never fails an extraction.
const DescriptionUnavailable = "description non disponible"

// PageContent holds the fragments extracted from one rendered page. It lives
// only for the duration of a single check and is discarded once the prompt
// is built.
type PageContent struct {
	URL         string
	Title       string // first H1 text, trimmed
	Description string // best-effort; DescriptionUnavailable when absent
}

// Extractor fetches a live page and reads named text fragments from it.
// A total extraction failure (navigation error, timeout) is returned as an
// error so the caller can pick its degradation branch; it is never silently
// converted to empty content.
type Extractor interface {
	Extract(ctx context.Context, url string) (*PageContent, error)
}
