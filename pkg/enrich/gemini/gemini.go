// Package gemini enriches identities with Gemini grounded on Google Search.
// Facts from a model are less trustworthy than from a data vendor, so base
// confidences are lower than the other adapters'.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codeGROOVE-dev/dossier/pkg/contact"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich"
	"google.golang.org/genai"
)

// Name identifies Gemini results.
const Name = "gemini"

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

const (
	workEmailConfidence     = 0.8
	personalEmailConfidence = 0.6
	mobileConfidence        = 0.7
	companyPhoneConfidence  = 0.6
)

// Config configures the Gemini client.
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies.
	BaseURL string
}

type generateFunc func(ctx context.Context, prompt string) (string, error)

// Enricher implements enrich.Provider.
type Enricher struct {
	generate generateFunc
	logger   *slog.Logger
	model    string
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) { e.logger = logger }
}

// New creates a Gemini enricher.
func New(ctx context.Context, cfg Config, opts ...Option) (*Enricher, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini API key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	e := &Enricher{
		model:  model,
		logger: slog.Default(),
		generate: func(ctx context.Context, prompt string) (string, error) {
			resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
				Tools:          []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
				CandidateCount: 1,
			})
			if err != nil {
				return "", err
			}
			return resp.Text(), nil
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name implements enrich.Provider.
func (*Enricher) Name() string { return Name }

type answer struct {
	LinkedInURL   string `json:"linkedin_url"`
	WorkEmail     string `json:"work_email"`
	PersonalEmail string `json:"personal_email"`
	MobilePhone   string `json:"mobile_phone"`
	CompanyPhone  string `json:"company_phone"`
}

// Enrich implements enrich.Provider.
func (e *Enricher) Enrich(ctx context.Context, req enrich.Request) enrich.SourceResult {
	e.logger.DebugContext(ctx, "gemini enrich", "model", e.model, "name", req.Query.FullName())
	text, err := e.generate(ctx, buildPrompt(req))
	if err != nil {
		return enrich.Failed(Name, describe(err))
	}
	return parse(text)
}

// parse reads the first JSON object in text. Search grounding rules out a
// JSON response MIME type, so the model may wrap the object in prose or fences.
func parse(text string) enrich.SourceResult {
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return enrich.Failed(Name, errors.New("no json object in response"))
	}
	var a answer
	if err := json.Unmarshal([]byte(text[start:end+1]), &a); err != nil {
		return enrich.Failed(Name, fmt.Errorf("parse structured json: %w", err))
	}
	b := enrich.NewBuilder(Name)
	b.Email(a.WorkEmail, contact.Work, workEmailConfidence)
	b.Email(a.PersonalEmail, contact.Personal, personalEmailConfidence)
	b.Phone(a.MobilePhone, contact.Mobile, mobileConfidence)
	b.Phone(a.CompanyPhone, contact.Company, companyPhoneConfidence)
	if strings.Contains(strings.ToLower(a.LinkedInURL), "linkedin.com/in/") {
		b.Profile(a.LinkedInURL)
	}
	return b.Result()
}

func buildPrompt(req enrich.Request) string {
	var sb strings.Builder
	sb.WriteString(`You are a contact research tool. Use web search to find publicly listed contact details for the person below.

Return ONLY a single JSON object with these keys:
- linkedin_url (string)
- work_email (string)
- personal_email (string)
- mobile_phone (string)
- company_phone (string)

Rules:
- If you cannot find a field, set it to an empty string.
- Never guess an email pattern; only report addresses you saw published.
- Do not include extra keys.

`)
	fmt.Fprintf(&sb, "Name: %s\n", req.Query.FullName())
	for _, f := range []struct{ label, value string }{
		{"Company", req.Query.Company},
		{"Title", req.Query.Title},
		{"Location", req.Query.Location},
		{"Company domain", req.Domain},
		{"LinkedIn", req.ProfileURL},
	} {
		if f.value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", f.label, f.value)
		}
	}
	return sb.String()
}

// describe shortens API errors to their status.
func describe(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("gemini API %d: %s", apiErr.Code, apiErr.Status)
	}
	return err
}
