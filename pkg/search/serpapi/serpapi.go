// Package serpapi implements search.Provider on top of SerpApi's Google engine.
//
// Knowledge graph entries (the panel Google shows for well-known people and
// organizations) are returned as authoritative candidates ahead of organic results.
package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/httpcache"
	"github.com/codeGROOVE-dev/dossier/pkg/search"
)

// DefaultEndpoint is the SerpApi search endpoint.
const DefaultEndpoint = "https://serpapi.com/search.json"

// Client queries SerpApi.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	apiKey     string
	endpoint   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPCache sets the response cache.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(c *Client) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithEndpoint overrides the API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// New creates a SerpApi client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type response struct {
	Error          string `json:"error"`
	KnowledgeGraph struct {
		Title       string `json:"title"`
		Type        string `json:"type"`
		Description string `json:"description"`
		Website     string `json:"website"`
		Profiles    []struct {
			Name string `json:"name"`
			Link string `json:"link"`
		} `json:"profiles"`
	} `json:"knowledge_graph"`
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
}

// Query implements search.Provider. Errors are logged and yield no candidates.
func (c *Client) Query(ctx context.Context, text string, opts search.Options) []search.Candidate {
	candidates, err := c.Search(ctx, text, opts)
	if err != nil {
		c.logger.WarnContext(ctx, "serpapi search failed", "query", text, "error", err)
		return nil
	}
	return candidates
}

// Search runs one Google query through SerpApi.
func (c *Client) Search(ctx context.Context, text string, opts search.Options) ([]search.Candidate, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("engine", "google")
	q.Set("q", text)
	q.Set("api_key", c.apiKey)
	if opts.Count > 0 {
		q.Set("num", strconv.Itoa(opts.Count))
	}
	if opts.Country != "" {
		q.Set("gl", strings.ToLower(opts.Country))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "serpapi search", "query", text)

	data, err := httpcache.Fetch(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return nil, err
	}
	return parseResults(data)
}

func parseResults(data []byte) ([]search.Candidate, error) {
	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if r.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", r.Error)
	}

	var out []search.Candidate
	kg := r.KnowledgeGraph
	if kg.Title != "" {
		title := kg.Title
		if kg.Type != "" {
			title += " - " + kg.Type
		}
		for _, p := range kg.Profiles {
			if p.Link == "" {
				continue
			}
			out = append(out, search.Candidate{
				URL:                     p.Link,
				Title:                   title,
				Snippet:                 kg.Description,
				FromAuthoritativeSource: true,
			})
		}
		if kg.Website != "" {
			out = append(out, search.Candidate{
				URL:                     kg.Website,
				Title:                   title,
				Snippet:                 kg.Description,
				FromAuthoritativeSource: true,
			})
		}
	}

	for i, o := range r.OrganicResults {
		rank := o.Position
		if rank == 0 {
			rank = i + 1
		}
		out = append(out, search.Candidate{
			URL:     o.Link,
			Title:   o.Title,
			Snippet: o.Snippet,
			Rank:    rank,
		})
	}
	return out, nil
}
