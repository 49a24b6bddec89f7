// Package whitepages adapts a regional White Pages style directory API.
// It is registered as a region-specialized provider: the collector only
// calls it when the query location is inside the directory's region.
package whitepages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/contact"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich"
	"github.com/codeGROOVE-dev/dossier/pkg/httpcache"
)

// DefaultName identifies results when no name is configured.
const DefaultName = "whitepages"

const (
	mobileConfidence   = 0.85
	landlineConfidence = 0.75
	emailConfidence    = 0.7
)

// Client calls the directory.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	name       string
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

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithName overrides the source name reported in results.
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

// New creates a directory client for endpoint.
func New(endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		name:       DefaultName,
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements enrich.Provider.
func (c *Client) Name() string { return c.name }

type listing struct {
	Name     string `json:"name"`
	Locality string `json:"locality"`
	Mobile   string `json:"mobile"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

type response struct {
	Results []listing `json:"results"`
}

// Enrich implements enrich.Provider. Only listings whose name contains the
// query's last name are used.
func (c *Client) Enrich(ctx context.Context, req enrich.Request) enrich.SourceResult {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return enrich.Failed(c.name, err)
	}
	q := u.Query()
	q.Set("first_name", req.Query.FirstName)
	q.Set("last_name", req.Query.LastName)
	if req.Query.Location != "" {
		q.Set("location", req.Query.Location)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return enrich.Failed(c.name, fmt.Errorf("create request: %w", err))
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	data, err := httpcache.Fetch(ctx, c.cache, c.httpClient, httpReq, c.logger)
	if err != nil {
		return enrich.Failed(c.name, err)
	}
	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return enrich.Failed(c.name, fmt.Errorf("decode response: %w", err))
	}

	b := enrich.NewBuilder(c.name)
	last := strings.ToLower(req.Query.LastName)
	for _, l := range r.Results {
		if last != "" && !strings.Contains(strings.ToLower(l.Name), last) {
			continue
		}
		b.Phone(l.Mobile, contact.Mobile, mobileConfidence)
		b.Phone(l.Phone, contact.Landline, landlineConfidence)
		b.Email(l.Email, contact.Personal, emailConfidence)
	}
	return b.Result()
}
