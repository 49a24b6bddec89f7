// Package hunter adapts the Hunter.io email finder.
package hunter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/contact"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich"
	"github.com/codeGROOVE-dev/dossier/pkg/httpcache"
)

// Name identifies Hunter results.
const Name = "hunter"

// DefaultEndpoint is the email finder endpoint.
const DefaultEndpoint = "https://api.hunter.io/v2/email-finder"

const (
	emailConfidence = 0.9
	phoneConfidence = 0.8
)

// Client calls Hunter.
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

// New creates a Hunter client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements enrich.Provider.
func (*Client) Name() string { return Name }

type response struct {
	Data struct {
		Email        string `json:"email"`
		Score        int    `json:"score"`
		PhoneNumber  string `json:"phone_number"`
		LinkedInURL  string `json:"linkedin_url"`
		Verification struct {
			Status string `json:"status"`
		} `json:"verification"`
	} `json:"data"`
}

// Enrich implements enrich.Provider. Hunter needs a domain or a company name;
// without either the provider is skipped.
func (c *Client) Enrich(ctx context.Context, req enrich.Request) enrich.SourceResult {
	if req.Domain == "" && req.Query.Company == "" {
		return enrich.Skipped(Name, "domain or company required")
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return enrich.Failed(Name, err)
	}
	q := u.Query()
	q.Set("first_name", req.Query.FirstName)
	q.Set("last_name", req.Query.LastName)
	if req.Domain != "" {
		q.Set("domain", req.Domain)
	} else {
		q.Set("company", req.Query.Company)
	}
	q.Set("api_key", c.apiKey)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return enrich.Failed(Name, fmt.Errorf("create request: %w", err))
	}

	data, err := httpcache.Fetch(ctx, c.cache, c.httpClient, httpReq, c.logger)
	if err != nil {
		return enrich.Failed(Name, err)
	}
	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return enrich.Failed(Name, fmt.Errorf("decode response: %w", err))
	}

	b := enrich.NewBuilder(Name)
	if r.Data.Verification.Status != "invalid" {
		b.Email(r.Data.Email, contact.Work, emailConfidence)
	}
	b.Phone(r.Data.PhoneNumber, contact.Company, phoneConfidence)
	b.Profile(r.Data.LinkedInURL)
	return b.Result()
}
