// Package numverify implements phone.Provider with the apilayer NumVerify API.
package numverify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/contact"
	"github.com/codeGROOVE-dev/dossier/pkg/httpcache"
)

// DefaultEndpoint is the NumVerify validate endpoint.
const DefaultEndpoint = "https://apilayer.net/api/validate"

// ErrAPI is returned when NumVerify answers with an error payload.
var ErrAPI = errors.New("numverify api error")

// Client queries NumVerify.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	apiKey     string
	endpoint   string
	country    string
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

// WithCountry sets the default country code for numbers in national format.
func WithCountry(code string) Option {
	return func(c *Client) { c.country = code }
}

// New creates a NumVerify client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type response struct {
	Valid               bool   `json:"valid"`
	InternationalFormat string `json:"international_format"`
	Location            string `json:"location"`
	CountryName         string `json:"country_name"`
	LineType            string `json:"line_type"`
	Success             *bool  `json:"success"`
	Error               struct {
		Code int    `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Validate implements phone.Provider.
func (c *Client) Validate(ctx context.Context, number string) (contact.Validation, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return contact.Validation{}, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("access_key", c.apiKey)
	q.Set("number", contact.PhoneDigits(number))
	if c.country != "" {
		q.Set("country_code", c.country)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return contact.Validation{}, fmt.Errorf("create request: %w", err)
	}

	data, err := httpcache.Fetch(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return contact.Validation{}, err
	}

	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return contact.Validation{}, fmt.Errorf("decode response: %w", err)
	}
	if r.Success != nil && !*r.Success {
		return contact.Validation{}, fmt.Errorf("%w: %d %s", ErrAPI, r.Error.Code, r.Error.Info)
	}

	location := r.Location
	if location == "" {
		location = r.CountryName
	}
	return contact.Validation{
		Valid:               r.Valid,
		LineType:            r.LineType,
		Location:            location,
		InternationalFormat: r.InternationalFormat,
		Source:              "numverify",
	}, nil
}
