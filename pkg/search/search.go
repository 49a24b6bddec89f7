// Package search defines the web search abstraction used for profile and domain discovery.
package search

import (
	"context"
	"net/url"
	"strings"
)

// Candidate is a single raw search hit.
type Candidate struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
	Rank    int    `json:"rank"`
	// FromAuthoritativeSource marks knowledge panel / infobox hits as opposed to organic results.
	FromAuthoritativeSource bool `json:"authoritative,omitempty"`
}

// Options tunes a single query.
type Options struct {
	Count   int    // maximum organic results; 0 uses the provider default
	Country string // two-letter country hint, e.g. "au"
}

// Provider runs text searches. Implementations fail soft: errors are logged
// and reported as an empty result.
type Provider interface {
	Query(ctx context.Context, text string, opts Options) []Candidate
}

// Host returns the lowercase hostname of rawURL with any leading "www." removed.
func Host(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
