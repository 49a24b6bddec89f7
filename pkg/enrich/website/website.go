// Package website enriches from the company's own site: the home page and the
// contact, about and team pages it links to.
package website

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/codeGROOVE-dev/dossier/pkg/contact"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich"
	"github.com/codeGROOVE-dev/dossier/pkg/htmlutil"
	"github.com/codeGROOVE-dev/dossier/pkg/httpcache"
	"github.com/codeGROOVE-dev/dossier/pkg/identity"
	"github.com/codeGROOVE-dev/dossier/pkg/nickname"
)

// Name identifies website results.
const Name = "website"

const (
	workEmailConfidence    = 0.6
	companyPhoneConfidence = 0.5
	maxPages               = 4
	maxPhones              = 2
)

// fallbackPaths are tried when the home page links to no contact pages.
var fallbackPaths = []string{"/contact", "/contact-us", "/about"}

// Client implements enrich.Provider.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPCache sets the HTTP cache.
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

// New creates a website client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements enrich.Provider.
func (*Client) Name() string { return Name }

// Enrich implements enrich.Provider. Only addresses on the company domain
// whose local part names the person are kept; the first listed numbers are
// reported as company lines.
func (c *Client) Enrich(ctx context.Context, req enrich.Request) enrich.SourceResult {
	if req.Domain == "" {
		return enrich.Skipped(Name, "company domain required")
	}

	home := "https://" + req.Domain + "/"
	body, err := c.fetch(ctx, home)
	if err != nil {
		return enrich.Failed(Name, err)
	}
	pages := []string{body}

	links := htmlutil.ContactLinks(body, home)
	if len(links) == 0 {
		for _, p := range fallbackPaths {
			links = append(links, "https://"+req.Domain+p)
		}
	}
	for _, link := range links {
		if len(pages) >= maxPages || ctx.Err() != nil {
			break
		}
		page, err := c.fetch(ctx, link)
		if err != nil {
			c.logger.DebugContext(ctx, "contact page fetch failed", "url", link, "error", err)
			continue
		}
		pages = append(pages, page)
	}

	b := enrich.NewBuilder(Name)
	locals := localParts(req.Query)
	for _, page := range pages {
		for _, e := range htmlutil.EmailAddresses(page) {
			local, host, _ := strings.Cut(e, "@")
			if onDomain(host, req.Domain) && locals[local] {
				b.Email(e, contact.Work, workEmailConfidence)
			}
		}
		for _, p := range htmlutil.PhoneNumbers(page) {
			if len(b.Result().Phones) >= maxPhones {
				break
			}
			b.Phone(p, contact.Company, companyPhoneConfidence)
		}
	}
	c.logger.DebugContext(ctx, "website scanned", "domain", req.Domain, "pages", len(pages))
	return b.Result()
}

func (c *Client) fetch(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	body, err := httpcache.Fetch(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return "", err
	}
	if htmlutil.IsBotProtection(string(body)) {
		return "", errors.New("bot protection page")
	}
	return string(body), nil
}

// onDomain reports whether host is domain or one of its subdomains.
func onDomain(host, domain string) bool {
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// localParts lists the mailbox names companies commonly derive from a
// person's name, across nickname variants of the first name.
func localParts(q identity.Query) map[string]bool {
	last := letters(q.LastName)
	out := make(map[string]bool)
	if last == "" {
		return out
	}
	for _, v := range nickname.Variants(q.FirstName) {
		first := letters(v)
		if first == "" {
			continue
		}
		f := first[:1]
		for _, l := range []string{
			first + "." + last, first + "_" + last, first + "-" + last, first + last,
			f + last, f + "." + last, last + "." + first, last + first, last + f, first,
		} {
			out[l] = true
		}
	}
	return out
}

// letters lowercases s and keeps only ASCII letters.
func letters(s string) string {
	return strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, s)
}
