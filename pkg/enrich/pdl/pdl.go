// Package pdl adapts the People Data Labs person enrichment API.
package pdl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/contact"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich"
	"github.com/codeGROOVE-dev/dossier/pkg/httpcache"
)

// Name identifies People Data Labs results.
const Name = "pdl"

// DefaultEndpoint is the person enrichment endpoint.
const DefaultEndpoint = "https://api.peopledatalabs.com/v5/person/enrich"

const (
	workEmailConfidence     = 0.9
	personalEmailConfidence = 0.7
	mobileConfidence        = 0.85
	landlineConfidence      = 0.75

	// minLikelihood is the lowest PDL match likelihood (1-10) accepted.
	minLikelihood = 6
)

// Client calls People Data Labs.
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

// New creates a People Data Labs client.
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
	Status     int `json:"status"`
	Likelihood int `json:"likelihood"`
	Data       struct {
		WorkEmail      string   `json:"work_email"`
		PersonalEmails []string `json:"personal_emails"`
		Emails         []struct {
			Address string `json:"address"`
			Type    string `json:"type"`
		} `json:"emails"`
		MobilePhone  string   `json:"mobile_phone"`
		PhoneNumbers []string `json:"phone_numbers"`
		LinkedInURL  string   `json:"linkedin_url"`
	} `json:"data"`
}

// Enrich implements enrich.Provider. A 404 from PDL means no match and is
// reported as success with no facts.
func (c *Client) Enrich(ctx context.Context, req enrich.Request) enrich.SourceResult {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return enrich.Failed(Name, err)
	}
	q := u.Query()
	q.Set("first_name", req.Query.FirstName)
	q.Set("last_name", req.Query.LastName)
	if req.Query.Company != "" {
		q.Set("company", req.Query.Company)
	}
	if req.Query.Location != "" {
		q.Set("location", req.Query.Location)
	}
	if req.ProfileURL != "" {
		q.Set("profile", req.ProfileURL)
	}
	q.Set("min_likelihood", strconv.Itoa(minLikelihood))
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return enrich.Failed(Name, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("X-Api-Key", c.apiKey)

	data, err := httpcache.Fetch(ctx, c.cache, c.httpClient, httpReq, c.logger)
	if err != nil {
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return enrich.NewBuilder(Name).Result()
		}
		return enrich.Failed(Name, err)
	}

	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return enrich.Failed(Name, fmt.Errorf("decode response: %w", err))
	}
	return parse(&r)
}

func parse(r *response) enrich.SourceResult {
	b := enrich.NewBuilder(Name)
	d := r.Data
	b.Email(d.WorkEmail, contact.Work, workEmailConfidence)
	for _, e := range d.PersonalEmails {
		b.Email(e, contact.Personal, personalEmailConfidence)
	}
	for _, e := range d.Emails {
		switch e.Type {
		case "professional", "current_professional":
			b.Email(e.Address, contact.Work, workEmailConfidence)
		case "personal":
			b.Email(e.Address, contact.Personal, personalEmailConfidence)
		}
	}
	b.Phone(d.MobilePhone, contact.Mobile, mobileConfidence)
	for _, p := range d.PhoneNumbers {
		if contact.PhoneDigits(p) == contact.PhoneDigits(d.MobilePhone) {
			continue
		}
		b.Phone(p, contact.Landline, landlineConfidence)
	}
	// PDL returns profile URLs without a scheme.
	if u := strings.TrimPrefix(strings.TrimPrefix(d.LinkedInURL, "https://"), "http://"); u != "" {
		b.Profile("https://" + u)
	}
	return b.Result()
}
