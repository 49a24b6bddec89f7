// Package apollo adapts the Apollo.io API for people enrichment and
// organization lookup.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/company"
	"github.com/codeGROOVE-dev/dossier/pkg/contact"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich"
	"github.com/codeGROOVE-dev/dossier/pkg/httpcache"
)

// Name identifies Apollo results.
const Name = "apollo"

// DefaultBaseURL is the Apollo API root.
const DefaultBaseURL = "https://api.apollo.io/api/v1"

// Base confidences per fact kind.
const (
	workEmailConfidence     = 0.95
	personalEmailConfidence = 0.7
	mobileConfidence        = 0.85
	otherPhoneConfidence    = 0.75
	companyPhoneConfidence  = 0.8
)

// Client calls Apollo.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	apiKey     string
	baseURL    string
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

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// New creates an Apollo client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
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

type matchRequest struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	OrganizationName     string `json:"organization_name,omitempty"`
	Domain               string `json:"domain,omitempty"`
	LinkedInURL          string `json:"linkedin_url,omitempty"`
	RevealPersonalEmails bool   `json:"reveal_personal_emails"`
}

type phoneNumber struct {
	RawNumber       string `json:"raw_number"`
	SanitizedNumber string `json:"sanitized_number"`
	Type            string `json:"type"`
}

type organization struct {
	Name          string `json:"name"`
	PrimaryDomain string `json:"primary_domain"`
	WebsiteURL    string `json:"website_url"`
	Industry      string `json:"industry"`
	Phone         string `json:"phone"`
	PrimaryPhone  struct {
		Number string `json:"number"`
	} `json:"primary_phone"`
}

type matchResponse struct {
	Person *struct {
		Email          string        `json:"email"`
		EmailStatus    string        `json:"email_status"`
		PersonalEmails []string      `json:"personal_emails"`
		LinkedInURL    string        `json:"linkedin_url"`
		PhoneNumbers   []phoneNumber `json:"phone_numbers"`
		Organization   *organization `json:"organization"`
	} `json:"person"`
}

// Enrich implements enrich.Provider using people/match.
func (c *Client) Enrich(ctx context.Context, req enrich.Request) enrich.SourceResult {
	body, err := json.Marshal(matchRequest{
		FirstName:            req.Query.FirstName,
		LastName:             req.Query.LastName,
		OrganizationName:     req.Query.Company,
		Domain:               req.Domain,
		LinkedInURL:          req.ProfileURL,
		RevealPersonalEmails: true,
	})
	if err != nil {
		return enrich.Failed(Name, err)
	}

	var resp matchResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/people/match", body, &resp); err != nil {
		return enrich.Failed(Name, err)
	}
	return parseMatch(&resp)
}

func parseMatch(resp *matchResponse) enrich.SourceResult {
	b := enrich.NewBuilder(Name)
	p := resp.Person
	if p == nil {
		return b.Result()
	}

	// Apollo masks unrevealed emails with a placeholder domain.
	if !strings.Contains(p.Email, "email_not_unlocked") {
		b.Email(p.Email, contact.Work, workEmailConfidence)
	}
	for _, e := range p.PersonalEmails {
		b.Email(e, contact.Personal, personalEmailConfidence)
	}
	for _, ph := range p.PhoneNumbers {
		number := ph.SanitizedNumber
		if number == "" {
			number = ph.RawNumber
		}
		switch ph.Type {
		case "mobile":
			b.Phone(number, contact.Mobile, mobileConfidence)
		case "work_hq":
			b.Phone(number, contact.Company, companyPhoneConfidence)
		default:
			b.Phone(number, contact.Landline, otherPhoneConfidence)
		}
	}
	if org := p.Organization; org != nil {
		b.Phone(orgPhone(org), contact.Company, companyPhoneConfidence)
	}
	b.Profile(p.LinkedInURL)
	return b.Result()
}

func orgPhone(org *organization) string {
	if org.PrimaryPhone.Number != "" {
		return org.PrimaryPhone.Number
	}
	return org.Phone
}

// Lookup implements company.Provider using organizations/enrich. Unknown
// domains yield company.ErrNotFound.
func (c *Client) Lookup(ctx context.Context, domain string) (company.Organization, error) {
	u := c.baseURL + "/organizations/enrich?" + url.Values{"domain": {domain}}.Encode()

	var resp struct {
		Organization *organization `json:"organization"`
	}
	if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return company.Organization{Domain: domain}, company.ErrNotFound
		}
		return company.Organization{}, err
	}

	org := resp.Organization
	if org == nil || org.Name == "" {
		return company.Organization{Domain: domain}, company.ErrNotFound
	}
	d := org.PrimaryDomain
	if d == "" {
		d = domain
	}
	return company.Organization{
		Name:     org.Name,
		Domain:   d,
		Phone:    orgPhone(org),
		Industry: org.Industry,
		Website:  org.WebsiteURL,
		Found:    true,
	}, nil
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.DebugContext(ctx, "apollo request", "method", method, "url", u)
	data, err := httpcache.Fetch(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
