// Package brave implements search.Provider using the Brave Search API.
// Free tier: 2,000 queries/month, 1 query/second.
// Get an API key at https://api.search.brave.com/
package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/httpcache"
	"github.com/codeGROOVE-dev/dossier/pkg/search"
)

// DefaultEndpoint is the Brave web search endpoint.
const DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Searcher queries Brave Search.
type Searcher struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	apiKey     string
	endpoint   string
}

// response is the subset of the Brave Search API response we consume.
type response struct {
	Infobox struct {
		Results []result `json:"results"`
	} `json:"infobox"`
	Web struct {
		Results []result `json:"results"`
	} `json:"web"`
}

type result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithHTTPCache sets a cache for storing search responses.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(b *Searcher) { b.cache = cache }
}

// WithLogger sets a logger for the searcher.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Searcher) { b.logger = logger }
}

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(b *Searcher) { b.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(b *Searcher) { b.httpClient = client }
}

// New creates a Brave Search client.
// apiKey is your Brave Search API subscription token.
func New(apiKey string, opts ...Option) *Searcher {
	b := &Searcher{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Query implements search.Provider. Errors are logged and yield no candidates.
func (b *Searcher) Query(ctx context.Context, text string, opts search.Options) []search.Candidate {
	candidates, err := b.Search(ctx, text, opts)
	if err != nil {
		b.logger.WarnContext(ctx, "brave search failed", "query", text, "error", err)
		return nil
	}
	return candidates
}

// Search performs a web search and returns infobox hits followed by organic results.
func (b *Searcher) Search(ctx context.Context, text string, opts search.Options) ([]search.Candidate, error) {
	u, err := url.Parse(b.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	count := opts.Count
	if count <= 0 {
		count = 10
	}
	q := u.Query()
	q.Set("q", text)
	q.Set("count", strconv.Itoa(count))
	if opts.Country != "" {
		q.Set("country", opts.Country)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	b.logger.DebugContext(ctx, "brave search", "query", text)

	data, err := httpcache.Fetch(ctx, b.cache, b.httpClient, req, b.logger)
	if err != nil {
		return nil, err
	}
	return parseResults(data)
}

// parseResults converts the raw JSON response into candidates.
func parseResults(data []byte) ([]search.Candidate, error) {
	var br response
	if err := json.Unmarshal(data, &br); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]search.Candidate, 0, len(br.Infobox.Results)+len(br.Web.Results))
	for _, r := range br.Infobox.Results {
		if r.URL == "" {
			continue
		}
		out = append(out, search.Candidate{
			URL:                     r.URL,
			Title:                   r.Title,
			Snippet:                 r.Description,
			FromAuthoritativeSource: true,
		})
	}
	for i, r := range br.Web.Results {
		out = append(out, search.Candidate{
			URL:     r.URL,
			Title:   r.Title,
			Snippet: r.Description,
			Rank:    i + 1,
		})
	}
	return out, nil
}
