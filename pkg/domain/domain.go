// Package domain infers an organization's primary internet domain from its name.
package domain

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/codeGROOVE-dev/dossier/pkg/company"
	"github.com/codeGROOVE-dev/dossier/pkg/search"
)

// Source records how a domain was obtained.
type Source string

// Domain sources.
const (
	SourceNone   Source = ""
	SourceInput  Source = "input"
	SourceSearch Source = "search"
	SourceGuess  Source = "guess"
)

// DefaultDenylist holds hosts that show up for company searches but never
// belong to the company: professional networks, social media, encyclopedias
// and business directories.
var DefaultDenylist = []string{
	"linkedin.com", "facebook.com", "twitter.com", "x.com", "instagram.com",
	"youtube.com", "tiktok.com", "pinterest.com", "reddit.com", "medium.com",
	"github.com", "wikipedia.org", "wikidata.org", "crunchbase.com", "zoominfo.com",
	"glassdoor.com", "glassdoor.com.au", "indeed.com", "seek.com.au", "yelp.com",
	"yellowpages.com", "yellowpages.com.au", "truelocal.com.au", "bloomberg.com",
	"dnb.com", "opencorporates.com", "abr.business.gov.au", "asic.gov.au",
	"companieslist.co", "rocketreach.co", "apollo.io", "signalhire.com", "craft.co",
}

// DefaultSuffixes are the guess templates, tried in order.
var DefaultSuffixes = []string{".com.au", ".com", ".au", ".io"}

// Resolver finds company domains.
type Resolver struct {
	search   search.Provider
	lookup   company.Provider
	logger   *slog.Logger
	denylist []string
	suffixes []string
	timeout  time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSearch enables the search strategy.
func WithSearch(p search.Provider) Option {
	return func(r *Resolver) { r.search = p }
}

// WithLookup enables the guess strategy, verifying guesses against p.
func WithLookup(p company.Provider) Option {
	return func(r *Resolver) { r.lookup = p }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithDenylist replaces the default denylist.
func WithDenylist(hosts []string) Option {
	return func(r *Resolver) { r.denylist = hosts }
}

// WithSuffixes replaces the default guess suffixes.
func WithSuffixes(suffixes []string) Option {
	return func(r *Resolver) { r.suffixes = suffixes }
}

// WithTimeout bounds each search or lookup call.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// New creates a Resolver. With neither WithSearch nor WithLookup it never
// finds anything.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		logger:   slog.Default(),
		denylist: DefaultDenylist,
		suffixes: DefaultSuffixes,
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the best-guess domain for companyName, or "" and
// SourceNone when every strategy is exhausted.
func (r *Resolver) Resolve(ctx context.Context, companyName string) (string, Source) {
	name := strings.TrimSpace(companyName)
	if name == "" {
		return "", SourceNone
	}
	if d := r.fromSearch(ctx, name); d != "" {
		r.logger.DebugContext(ctx, "domain found by search", "company", name, "domain", d)
		return d, SourceSearch
	}
	if d := r.fromGuess(ctx, name); d != "" {
		r.logger.DebugContext(ctx, "domain found by guess", "company", name, "domain", d)
		return d, SourceGuess
	}
	r.logger.InfoContext(ctx, "no domain found", "company", name)
	return "", SourceNone
}

func (r *Resolver) fromSearch(ctx context.Context, name string) string {
	if r.search == nil {
		return ""
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	for _, c := range r.search.Query(ctx, `"`+name+`" official website`, search.Options{}) {
		if c.FromAuthoritativeSource {
			continue
		}
		host := search.Host(c.URL)
		if host == "" || r.Denied(host) {
			continue
		}
		return host
	}
	return ""
}

func (r *Resolver) fromGuess(ctx context.Context, name string) string {
	if r.lookup == nil {
		return ""
	}
	for _, guess := range Guesses(name, r.suffixes) {
		if ctx.Err() != nil {
			return ""
		}
		org, err := r.lookupOne(ctx, guess)
		switch {
		case errors.Is(err, company.ErrNotFound):
			r.logger.DebugContext(ctx, "domain guess unknown", "guess", guess)
			continue
		case err != nil:
			r.logger.WarnContext(ctx, "domain guess lookup failed", "guess", guess, "error", err)
			continue
		}
		if org.Found {
			return guess
		}
	}
	return ""
}

func (r *Resolver) lookupOne(ctx context.Context, guess string) (company.Organization, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.lookup.Lookup(ctx, guess)
}

func (r *Resolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Denied reports whether host is a denylisted host or a subdomain of one.
func (r *Resolver) Denied(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, d := range r.denylist {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Guesses builds candidate domains from companyName: the lowercased name with
// every non-alphanumeric character removed, followed by each suffix in order.
func Guesses(companyName string, suffixes []string) []string {
	stem := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, companyName)
	if stem == "" {
		return nil
	}
	out := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		out = append(out, stem+s)
	}
	return out
}
