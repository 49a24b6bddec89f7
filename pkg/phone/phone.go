// Package phone validates phone numbers through an external provider and
// falls back to local numbering-plan heuristics when the provider is
// unavailable.
package phone

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/contact"
)

// HeuristicSource marks validations produced without a provider.
const HeuristicSource = "heuristic"

// Provider validates a phone number remotely.
type Provider interface {
	Validate(ctx context.Context, number string) (contact.Validation, error)
}

// plan is one regional numbering pattern, matched against digits only.
type plan struct {
	re       *regexp.Regexp
	lineType string
	location string
	country  string // country calling code for InternationalFormat
}

// plans are tried in order; the first match wins.
var plans = []plan{
	{regexp.MustCompile(`^(61|0)?4\d{8}$`), "mobile", "Australia", "61"},
	{regexp.MustCompile(`^(61|0)?[2378]\d{8}$`), "landline", "Australia", "61"},
	{regexp.MustCompile(`^1?[2-9]\d{2}[2-9]\d{6}$`), "landline", "North America", "1"},
}

const (
	minDigits = 8
	maxDigits = 15
)

// Heuristic validates number using regional numbering patterns only.
func Heuristic(number string) contact.Validation {
	digits := contact.PhoneDigits(number)
	for _, p := range plans {
		m := p.re.FindStringSubmatch(digits)
		if m == nil {
			continue
		}
		national := digits
		if len(m) > 1 && m[1] != "" {
			national = digits[len(m[1]):]
		} else if p.country == "1" && len(digits) == 11 {
			national = digits[1:]
		}
		return contact.Validation{
			Valid:               true,
			LineType:            p.lineType,
			Location:            p.location,
			InternationalFormat: "+" + p.country + national,
			Source:              HeuristicSource,
		}
	}
	n := len(digits)
	return contact.Validation{Valid: n >= minDigits && n <= maxDigits, Source: HeuristicSource}
}

// Validator checks numbers with a provider and a heuristic fallback.
type Validator struct {
	provider Provider
	logger   *slog.Logger
	timeout  time.Duration
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) { v.logger = logger }
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(v *Validator) { v.timeout = d }
}

// New creates a Validator. provider may be nil, in which case every number
// is checked heuristically.
func New(provider Provider, opts ...Option) *Validator {
	v := &Validator{
		provider: provider,
		logger:   slog.Default(),
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks number. It never fails: provider errors fall back to Heuristic.
func (v *Validator) Validate(ctx context.Context, number string) contact.Validation {
	if v.provider == nil {
		return Heuristic(number)
	}
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}
	res, err := v.provider.Validate(ctx, number)
	if err != nil {
		v.logger.WarnContext(ctx, "phone validation provider failed, using heuristic", "error", err)
		return Heuristic(number)
	}
	return res
}

// ValidateTop attaches a validation to the first n phones, which callers
// pass already sorted by confidence. The rest are left untouched.
func (v *Validator) ValidateTop(ctx context.Context, phones []contact.Consolidated, n int) {
	for i := range phones {
		if i >= n || ctx.Err() != nil {
			return
		}
		res := v.Validate(ctx, phones[i].Value)
		phones[i].Validation = &res
	}
}
