// Package match locates the LinkedIn profile that best fits an identity by
// running ordered search strategies and scoring every profile hit.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/identity"
	"github.com/codeGROOVE-dev/dossier/pkg/nickname"
	"github.com/codeGROOVE-dev/dossier/pkg/search"
)

// ErrBadThreshold is returned by New for thresholds outside (0, 100].
var ErrBadThreshold = errors.New("match threshold must be within (0, 100]")

const siteFilter = "site:linkedin.com/in"

// Match is the best-scoring profile candidate.
type Match struct {
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Score      int      `json:"score"`
	Confidence float64  `json:"confidence"`
	Strategy   string   `json:"strategy,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`
}

// Strategy is one search query in the ordered list.
type Strategy struct {
	Name  string
	Query string
}

// Result reports the best match (nil when no profile URL was ever seen) and
// the strategies that were actually executed.
type Result struct {
	Best            *Match
	StrategiesTried []string
}

// Scorer runs profile discovery against a search provider.
type Scorer struct {
	provider  search.Provider
	logger    *slog.Logger
	country   string
	threshold int
	timeout   time.Duration
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) { s.logger = logger }
}

// WithTimeout bounds each search call.
func WithTimeout(d time.Duration) Option {
	return func(s *Scorer) { s.timeout = d }
}

// WithCountry passes a country hint to the search provider.
func WithCountry(country string) Option {
	return func(s *Scorer) { s.country = country }
}

// New creates a Scorer. threshold is the score (out of 100) at which the
// strategy loop stops early; it has no default and must be chosen by the caller.
func New(provider search.Provider, threshold int, opts ...Option) (*Scorer, error) {
	if threshold <= 0 || threshold > maxScore {
		return nil, fmt.Errorf("%w: got %d", ErrBadThreshold, threshold)
	}
	s := &Scorer{
		provider:  provider,
		threshold: threshold,
		timeout:   10 * time.Second,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Threshold returns the early-exit score.
func (s *Scorer) Threshold() int { return s.threshold }

// Strategies returns the ordered search strategies for q, most specific first.
// Strategies that need a field q does not have are left out.
func Strategies(q identity.Query) []Strategy {
	name := q.FullName()
	var out []Strategy
	seen := make(map[string]bool)
	add := func(n string, parts ...string) {
		var kept []string
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				kept = append(kept, p)
			}
		}
		kept = append(kept, siteFilter)
		query := strings.Join(kept, " ")
		if seen[query] {
			return
		}
		seen[query] = true
		out = append(out, Strategy{Name: n, Query: query})
	}

	if q.Company != "" {
		add("exact_company", quote(name), quote(q.Company))
		if q.Title != "" {
			add("title_company", quote(name), q.Title, q.Company)
		}
		add("loose_company", name, q.Company)
	}
	for _, v := range nickname.Alternates(q.FirstName) {
		alt := quote(v + " " + q.LastName)
		if q.Company != "" {
			add("nickname:"+v, alt, q.Company)
		} else {
			add("nickname:"+v, alt, q.Location)
		}
	}
	if q.Location != "" {
		add("location", quote(name), q.Location)
	}
	if len(out) == 0 {
		add("name", quote(name))
	}
	return out
}

// Find runs strategies in order and returns the best profile across all of
// them. It stops after the first strategy whose hits bring the running best
// score to the threshold or above.
func (s *Scorer) Find(ctx context.Context, q identity.Query) Result {
	var res Result
	t := newTarget(q)

	for _, st := range Strategies(q) {
		if ctx.Err() != nil {
			break
		}
		res.StrategiesTried = append(res.StrategiesTried, st.Name)

		candidates := s.query(ctx, st.Query)
		s.logger.DebugContext(ctx, "strategy results", "strategy", st.Name, "query", st.Query, "candidates", len(candidates))

		for _, c := range candidates {
			if !IsProfileURL(c.URL) {
				continue
			}
			score, reasons := scoreWith(t, newHit(c))
			if res.Best != nil && score <= res.Best.Score {
				continue
			}
			res.Best = &Match{
				URL:        NormalizeProfileURL(c.URL),
				Title:      c.Title,
				Score:      score,
				Confidence: Confidence(score),
				Strategy:   st.Name,
				Reasons:    reasons,
			}
		}

		if res.Best != nil && res.Best.Score >= s.threshold {
			s.logger.InfoContext(ctx, "profile match above threshold",
				"strategy", st.Name, "url", res.Best.URL, "score", res.Best.Score, "threshold", s.threshold)
			break
		}
	}

	if res.Best == nil {
		s.logger.InfoContext(ctx, "no profile candidates found", "name", q.FullName(), "strategies", len(res.StrategiesTried))
	}
	return res
}

func (s *Scorer) query(ctx context.Context, text string) []search.Candidate {
	if s.provider == nil {
		return nil
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.provider.Query(ctx, text, search.Options{Country: s.country})
}

func quote(s string) string {
	return `"` + strings.TrimSpace(s) + `"`
}
