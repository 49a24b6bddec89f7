// Package enrich fans an identity out to contact-data providers and collects
// one SourceResult per provider. A failing, slow or panicking provider only
// ever affects its own result.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/contact"
	"github.com/codeGROOVE-dev/dossier/pkg/httpcache"
	"github.com/codeGROOVE-dev/dossier/pkg/identity"
	"golang.org/x/sync/errgroup"
)

// Status is the outcome of one provider call.
type Status string

// Provider outcomes.
const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// maxErrorLen bounds SourceResult.Error.
const maxErrorLen = 200

// Request is what every provider receives.
type Request struct {
	Query      identity.Query
	ProfileURL string
	Domain     string
}

// SourceResult is one provider's answer. Success with no facts means the
// provider found nothing.
//
//nolint:govet // fieldalignment: intentional layout for readability
type SourceResult struct {
	Source     string         `json:"source"`
	Status     Status         `json:"status"`
	Emails     []contact.Fact `json:"emails,omitempty"`
	Phones     []contact.Fact `json:"phones,omitempty"`
	ProfileURL string         `json:"profile_url,omitempty"`
	Error      string         `json:"error,omitempty"`
	Duration   time.Duration  `json:"duration"`
}

// Provider is implemented by every enrichment adapter.
// Enrich never fails: errors are reported in the result.
type Provider interface {
	Name() string
	Enrich(ctx context.Context, req Request) SourceResult
}

// Registration attaches a provider to the collector. A provider with Regions
// is only queried when the query location mentions one of them.
type Registration struct {
	Provider Provider
	Regions  []string
}

// Regional reports whether the registration is region-specialized.
func (r Registration) Regional() bool { return len(r.Regions) > 0 }

// InRegion reports whether location contains any keyword, case-insensitively.
func InRegion(location string, keywords []string) bool {
	loc := strings.ToLower(location)
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" && strings.Contains(loc, k) {
			return true
		}
	}
	return false
}

// Observer receives one call per provider result.
type Observer interface {
	ObserveProvider(provider string, status string, d time.Duration)
}

// Collector runs providers concurrently.
type Collector struct {
	logger   *slog.Logger
	observer Observer
	timeout  time.Duration
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(c *Collector) { c.timeout = d }
}

// WithObserver reports provider outcomes, typically to metrics.
func WithObserver(o Observer) Option {
	return func(c *Collector) { c.observer = o }
}

// NewCollector creates a Collector with a 20 second per-provider timeout.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		logger:  slog.Default(),
		timeout: 20 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect queries every registered provider and returns their results in
// registration order. Providers run concurrently, each under its own
// timeout; one provider's failure never cancels another.
func (c *Collector) Collect(ctx context.Context, req Request, regs []Registration) []SourceResult {
	results := make([]SourceResult, len(regs))

	var g errgroup.Group
	for i, reg := range regs {
		if reg.Provider == nil {
			continue
		}
		name := reg.Provider.Name()
		if reg.Regional() && !InRegion(req.Query.Location, reg.Regions) {
			c.logger.DebugContext(ctx, "provider outside region", "provider", name, "location", req.Query.Location)
			results[i] = SourceResult{Source: name, Status: StatusSkipped}
			c.observe(results[i])
			continue
		}
		g.Go(func() error {
			results[i] = c.run(ctx, reg.Provider, req)
			c.observe(results[i])
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	var kept []SourceResult
	for i, r := range results {
		if regs[i].Provider != nil {
			kept = append(kept, r)
		}
	}
	return kept
}

func (c *Collector) run(ctx context.Context, p Provider, req Request) SourceResult {
	name := p.Name()
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// A provider that ignores ctx is abandoned at the deadline.
	done := make(chan SourceResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.ErrorContext(ctx, "provider panicked", "provider", name, "panic", r)
				done <- Failed(name, fmt.Errorf("panic: %v", r))
			}
		}()
		done <- p.Enrich(ctx, req)
	}()

	var res SourceResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = Failed(name, ctx.Err())
	}
	res.Source = name
	res.Duration = time.Since(start)
	if res.Status == "" {
		res.Status = StatusSuccess
	}

	if res.Status == StatusError {
		c.logger.WarnContext(ctx, "provider failed", "provider", name, "error", res.Error)
	} else {
		c.logger.DebugContext(ctx, "provider finished", "provider", name,
			"emails", len(res.Emails), "phones", len(res.Phones), "profile", res.ProfileURL)
	}
	return res
}

func (c *Collector) observe(r SourceResult) {
	if c.observer != nil {
		c.observer.ObserveProvider(r.Source, string(r.Status), r.Duration)
	}
}

// Failed builds an error result with a short, human-readable message.
func Failed(source string, err error) SourceResult {
	return SourceResult{Source: source, Status: StatusError, Error: ShortError(err)}
}

// Skipped builds a skipped result with a reason.
func Skipped(source, reason string) SourceResult {
	return SourceResult{Source: source, Status: StatusSkipped, Error: reason}
}

// ShortError renders err for SourceResult.Error.
func ShortError(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *httpcache.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return fmt.Sprintf("HTTP %d", httpErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	msg := err.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen] + "..."
	}
	return msg
}

// Builder accumulates facts for one provider result, dropping values that
// are not emails or phones and values already added.
type Builder struct {
	res SourceResult
}

// NewBuilder starts a successful result for source.
func NewBuilder(source string) *Builder {
	return &Builder{res: SourceResult{Source: source, Status: StatusSuccess}}
}

// Email adds an email fact.
func (b *Builder) Email(value string, kind contact.Kind, confidence float64) *Builder {
	f, ok := contact.NewEmail(value, kind, b.res.Source, confidence)
	if !ok || slices.ContainsFunc(b.res.Emails, func(e contact.Fact) bool { return e.Value == f.Value }) {
		return b
	}
	b.res.Emails = append(b.res.Emails, f)
	return b
}

// Phone adds a phone fact.
func (b *Builder) Phone(value string, kind contact.Kind, confidence float64) *Builder {
	f, ok := contact.NewPhone(value, kind, b.res.Source, confidence)
	if !ok {
		return b
	}
	digits := contact.PhoneDigits(f.Value)
	if slices.ContainsFunc(b.res.Phones, func(p contact.Fact) bool { return contact.PhoneDigits(p.Value) == digits }) {
		return b
	}
	b.res.Phones = append(b.res.Phones, f)
	return b
}

// Profile sets the reported profile URL when none is set yet.
func (b *Builder) Profile(url string) *Builder {
	if url = strings.TrimSpace(url); url != "" && b.res.ProfileURL == "" {
		b.res.ProfileURL = url
	}
	return b
}

// Result returns the accumulated result.
func (b *Builder) Result() SourceResult {
	return b.res
}
