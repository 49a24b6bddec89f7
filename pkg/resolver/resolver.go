// Package resolver runs a full identity resolution: profile and domain
// discovery, enrichment fan-out, consolidation and phone validation.
//
// The pipeline moves through fixed states in order and always reaches DONE.
// A failing or panicking phase is recorded as a Note and the next phase
// runs with whatever data exists. The only error Resolve returns is for
// invalid input, which is rejected before SEARCH begins.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/consolidate"
	"github.com/codeGROOVE-dev/dossier/pkg/contact"
	"github.com/codeGROOVE-dev/dossier/pkg/domain"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich"
	"github.com/codeGROOVE-dev/dossier/pkg/identity"
	"github.com/codeGROOVE-dev/dossier/pkg/match"
	"github.com/codeGROOVE-dev/dossier/pkg/metrics"
	"github.com/codeGROOVE-dev/dossier/pkg/phone"
	"github.com/google/uuid"
)

// State is a pipeline phase.
type State string

// Pipeline states, in execution order.
const (
	StateSearch         State = "SEARCH"
	StateEnrich         State = "ENRICH"
	StateRegionalEnrich State = "REGIONAL_ENRICH"
	StateConsolidate    State = "CONSOLIDATE"
	StateValidate       State = "VALIDATE"
	StateDone           State = "DONE"
)

// Confidence given to profile URLs supplied by the caller and to URLs
// adopted from an enrichment provider when search found nothing.
const (
	givenProfileConfidence   = 0.99
	adoptedProfileConfidence = 0.7
)

// Note records something that went wrong or was notable in a phase.
type Note struct {
	State   State  `json:"state"`
	Message string `json:"message"`
}

// SourceStatus summarizes one provider's result.
//
//nolint:govet // fieldalignment: intentional layout for readability
type SourceStatus struct {
	Status   enrich.Status `json:"status"`
	Error    string        `json:"error,omitempty"`
	Emails   int           `json:"emails"`
	Phones   int           `json:"phones"`
	Duration time.Duration `json:"duration"`
}

// Timing records when a resolution started and how long each phase took.
type Timing struct {
	StartedAt time.Time               `json:"started_at"`
	Total     time.Duration           `json:"total"`
	Phases    map[State]time.Duration `json:"phases"`
}

// Result is the consolidated record for one identity.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Result struct {
	ID              string                  `json:"id"`
	State           State                   `json:"state"`
	Query           identity.Query          `json:"query"`
	Profile         *match.Match            `json:"profile,omitempty"`
	Domain          string                  `json:"domain,omitempty"`
	DomainSource    domain.Source           `json:"domain_source,omitempty"`
	Emails          []contact.Consolidated  `json:"emails"`
	Phones          []contact.Consolidated  `json:"phones"`
	Sources         map[string]SourceStatus `json:"sources"`
	Notes           []Note                  `json:"notes,omitempty"`
	StrategiesTried []string                `json:"strategies_tried,omitempty"`
	Timing          Timing                  `json:"timing"`
}

// Resolver orchestrates one or many resolutions.
type Resolver struct {
	scorer        *match.Scorer
	domains       *domain.Resolver
	collector     *enrich.Collector
	validator     *phone.Validator
	metrics       *metrics.Metrics
	logger        *slog.Logger
	region        string
	providers     []enrich.Registration
	engine        consolidate.Engine
	validateTop   int
	enrichTimeout time.Duration
	batchDelay    time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithScorer enables profile discovery.
func WithScorer(s *match.Scorer) Option {
	return func(r *Resolver) { r.scorer = s }
}

// WithDomainResolver enables domain discovery.
func WithDomainResolver(d *domain.Resolver) Option {
	return func(r *Resolver) { r.domains = d }
}

// WithProviders registers enrichment providers.
func WithProviders(regs ...enrich.Registration) Option {
	return func(r *Resolver) { r.providers = append(r.providers, regs...) }
}

// WithEnrichTimeout bounds each provider call of the default collector.
func WithEnrichTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.enrichTimeout = d }
}

// WithIncrement sets the consolidation confidence increment.
func WithIncrement(inc float64) Option {
	return func(r *Resolver) { r.engine = consolidate.Engine{Increment: inc} }
}

// WithValidator enables phone validation of the top n phones.
func WithValidator(v *phone.Validator, n int) Option {
	return func(r *Resolver) {
		r.validator = v
		r.validateTop = n
	}
}

// WithRegion sets the location used when a query has none.
func WithRegion(region string) Option {
	return func(r *Resolver) { r.region = region }
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithBatchDelay sets the pause between the end of one batch item and the
// start of the next.
func WithBatchDelay(d time.Duration) Option {
	return func(r *Resolver) { r.batchDelay = d }
}

// New creates a Resolver. Without options it validates input and returns
// empty results.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		logger:        slog.Default(),
		region:        identity.DefaultRegion,
		engine:        consolidate.Engine{Increment: consolidate.DefaultIncrement},
		enrichTimeout: 20 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.collector = enrich.NewCollector(
		enrich.WithLogger(r.logger),
		enrich.WithTimeout(r.enrichTimeout),
		enrich.WithObserver(r.metrics),
	)
	return r
}

// run carries the mutable state of one resolution.
type run struct {
	res     *Result
	query   identity.Query // progressively enriched copy of res.Query
	results []enrich.SourceResult
}

// Resolve resolves q. It returns an error only when q is invalid.
func (r *Resolver) Resolve(ctx context.Context, q identity.Query) (Result, error) {
	q = q.Normalize(r.region)
	if err := q.Validate(); err != nil {
		r.metrics.ObserveResolution("invalid", 0)
		return Result{}, err
	}

	start := time.Now()
	st := &run{
		query: q,
		res: &Result{
			ID:      uuid.NewString(),
			Query:   q,
			Emails:  []contact.Consolidated{},
			Phones:  []contact.Consolidated{},
			Sources: make(map[string]SourceStatus),
			Timing:  Timing{StartedAt: start, Phases: make(map[State]time.Duration)},
		},
	}
	log := r.logger.With("id", st.res.ID, "name", q.FullName())
	log.InfoContext(ctx, "resolving identity", "company", q.Company, "location", q.Location)

	r.phase(ctx, st, StateSearch, r.search)
	r.phase(ctx, st, StateEnrich, func(ctx context.Context, st *run) error {
		r.enrich(ctx, st, general(r.providers))
		return nil
	})
	if regional := regional(r.providers); len(regional) > 0 {
		r.phase(ctx, st, StateRegionalEnrich, func(ctx context.Context, st *run) error {
			r.enrich(ctx, st, regional)
			return nil
		})
	}
	r.adoptProfile(st)
	r.phase(ctx, st, StateConsolidate, r.consolidate)
	r.phase(ctx, st, StateValidate, r.validate)

	st.res.Timing.Total = time.Since(start)
	st.res.State = StateDone

	outcome := "no_profile"
	if st.res.Profile != nil {
		outcome = "profile_found"
	}
	r.metrics.ObserveResolution(outcome, st.res.Timing.Total)
	log.InfoContext(ctx, "resolution done", "outcome", outcome,
		"emails", len(st.res.Emails), "phones", len(st.res.Phones),
		"notes", len(st.res.Notes), "duration", st.res.Timing.Total)

	return *st.res, nil
}

// phase runs fn, recording its duration and turning errors and panics into notes.
func (r *Resolver) phase(ctx context.Context, st *run, state State, fn func(context.Context, *run) error) {
	st.res.State = state
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.ErrorContext(ctx, "phase panicked", "state", state, "panic", p)
			st.note(state, fmt.Sprintf("panic: %v", p))
		}
		d := time.Since(start)
		st.res.Timing.Phases[state] += d
		r.metrics.ObservePhase(string(state), d)
	}()

	if err := fn(ctx, st); err != nil {
		r.logger.WarnContext(ctx, "phase failed", "state", state, "error", err)
		st.note(state, err.Error())
	}
}

func (st *run) note(state State, msg string) {
	st.res.Notes = append(st.res.Notes, Note{State: state, Message: msg})
}

func (r *Resolver) search(ctx context.Context, st *run) error {
	q := st.query

	switch {
	case q.ProfileURL != "":
		u := q.ProfileURL
		if match.IsProfileURL(u) {
			u = match.NormalizeProfileURL(u)
		}
		st.res.Profile = &match.Match{URL: u, Score: 100, Confidence: givenProfileConfidence, Strategy: "input"}
	case r.scorer != nil:
		found := r.scorer.Find(ctx, q)
		st.res.StrategiesTried = found.StrategiesTried
		st.res.Profile = found.Best
		switch {
		case found.Best == nil:
			st.note(StateSearch, "no profile match found")
		case found.Best.Score < r.scorer.Threshold():
			st.note(StateSearch, fmt.Sprintf("best profile score %d is below threshold %d", found.Best.Score, r.scorer.Threshold()))
		}
	default:
		st.note(StateSearch, "profile search not configured")
	}
	if st.res.Profile != nil {
		st.query.ProfileURL = st.res.Profile.URL
	}

	switch {
	case q.Domain != "":
		st.res.Domain, st.res.DomainSource = q.Domain, domain.SourceInput
	case q.Company == "":
	case r.domains == nil:
		st.note(StateSearch, "domain discovery not configured")
	default:
		st.res.Domain, st.res.DomainSource = r.domains.Resolve(ctx, q.Company)
		if st.res.Domain == "" {
			st.note(StateSearch, "no domain found for "+q.Company)
		}
	}
	st.query.Domain = st.res.Domain
	return ctx.Err()
}

func (r *Resolver) enrich(ctx context.Context, st *run, regs []enrich.Registration) {
	req := enrich.Request{Query: st.query, ProfileURL: st.query.ProfileURL, Domain: st.query.Domain}
	for _, sr := range r.collector.Collect(ctx, req, regs) {
		st.results = append(st.results, sr)
		st.res.Sources[sr.Source] = SourceStatus{
			Status:   sr.Status,
			Error:    sr.Error,
			Emails:   len(sr.Emails),
			Phones:   len(sr.Phones),
			Duration: sr.Duration,
		}
	}
}

// adoptProfile falls back to the first provider-reported profile URL when
// search found none.
func (r *Resolver) adoptProfile(st *run) {
	if st.res.Profile != nil {
		return
	}
	for _, sr := range st.results {
		if sr.Status != enrich.StatusSuccess || !match.IsProfileURL(sr.ProfileURL) {
			continue
		}
		st.res.Profile = &match.Match{
			URL:        match.NormalizeProfileURL(sr.ProfileURL),
			Confidence: adoptedProfileConfidence,
			Strategy:   "provider:" + sr.Source,
		}
		st.note(StateEnrich, "profile adopted from "+sr.Source)
		return
	}
}

func (r *Resolver) consolidate(_ context.Context, st *run) error {
	var emails, phones []contact.Fact
	for _, sr := range st.results {
		emails = append(emails, sr.Emails...)
		phones = append(phones, sr.Phones...)
	}
	if e := r.engine.Emails(emails); e != nil {
		st.res.Emails = e
	}
	if p := r.engine.Phones(phones); p != nil {
		st.res.Phones = p
	}
	return nil
}

func (r *Resolver) validate(ctx context.Context, st *run) error {
	if r.validator == nil || r.validateTop <= 0 || len(st.res.Phones) == 0 {
		return nil
	}
	r.validator.ValidateTop(ctx, st.res.Phones, r.validateTop)
	return nil
}

func general(regs []enrich.Registration) []enrich.Registration {
	var out []enrich.Registration
	for _, reg := range regs {
		if !reg.Regional() {
			out = append(out, reg)
		}
	}
	return out
}

func regional(regs []enrich.Registration) []enrich.Registration {
	var out []enrich.Registration
	for _, reg := range regs {
		if reg.Regional() {
			out = append(out, reg)
		}
	}
	return out
}
