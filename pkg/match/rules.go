package match

import (
	"net/url"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/codeGROOVE-dev/dossier/pkg/identity"
	"github.com/codeGROOVE-dev/dossier/pkg/nickname"
	"github.com/codeGROOVE-dev/dossier/pkg/search"
)

// Rule weights. The authoritative-panel bonus is largest, names next, then
// company, then job title, and location smallest.
const (
	WeightAuthoritative = 35
	WeightFirstName     = 20
	WeightLastName      = 20
	WeightLastNameInURL = 10
	WeightCompany       = 20
	WeightTitle         = 10
	WeightLocation      = 5

	maxScore = 100
)

// target is the lowercased identity a candidate is compared against.
type target struct {
	firstName string
	lastName  string
	company   []string // raw and legal-suffix-stripped forms
	title     string
	location  string
}

// hit is the lowercased candidate view the rules inspect.
type hit struct {
	title         string
	words         []string // title split on non-word characters
	snippet       string
	slug          string // compacted member slug
	authoritative bool
}

// rule is one weighted check. Rules are evaluated in slice order.
type rule struct {
	name   string
	weight int
	match  func(t *target, h *hit) bool
}

var rules = []rule{
	{"authoritative", WeightAuthoritative, func(_ *target, h *hit) bool { return h.authoritative }},
	{"first_name", WeightFirstName, func(t *target, h *hit) bool {
		return containsWord(h.title, t.firstName) ||
			slices.ContainsFunc(h.words, func(w string) bool { return nickname.Equivalent(w, t.firstName) })
	}},
	{"last_name", WeightLastName, func(t *target, h *hit) bool { return containsWord(h.title, t.lastName) }},
	{"last_name_url", WeightLastNameInURL, func(t *target, h *hit) bool {
		return !containsWord(h.title, t.lastName) && contains(h.slug, compact(t.lastName))
	}},
	{"company", WeightCompany, func(t *target, h *hit) bool { return containsAny(h.title, t.company) }},
	{"title", WeightTitle, func(t *target, h *hit) bool {
		return contains(h.title, t.title) || contains(h.snippet, t.title)
	}},
	{"location", WeightLocation, func(t *target, h *hit) bool {
		return contains(h.title, t.location) || contains(h.snippet, t.location)
	}},
}

func newTarget(q identity.Query) *target {
	t := &target{
		firstName: strings.ToLower(strings.TrimSpace(q.FirstName)),
		lastName:  strings.ToLower(strings.TrimSpace(q.LastName)),
		title:     strings.ToLower(strings.TrimSpace(q.Title)),
		location:  strings.ToLower(strings.TrimSpace(q.Location)),
	}
	if c := strings.ToLower(strings.TrimSpace(q.Company)); c != "" {
		t.company = append(t.company, c)
		if stripped := stripLegalSuffix(c); stripped != c && stripped != "" {
			t.company = append(t.company, stripped)
		}
	}
	return t
}

func newHit(c search.Candidate) *hit {
	title := strings.ToLower(c.Title)
	return &hit{
		title:         title,
		words:         strings.FieldsFunc(title, func(r rune) bool { return !isWordChar(r) }),
		snippet:       strings.ToLower(c.Snippet),
		slug:          compact(profileSlug(c.URL)),
		authoritative: c.FromAuthoritativeSource,
	}
}

// Score returns the weighted score of c against q and the names of the rules that matched.
func Score(q identity.Query, c search.Candidate) (score int, reasons []string) {
	return scoreWith(newTarget(q), newHit(c))
}

func scoreWith(t *target, h *hit) (score int, reasons []string) {
	for _, r := range rules {
		if r.match(t, h) {
			score += r.weight
			reasons = append(reasons, r.name)
		}
	}
	return min(score, maxScore), reasons
}

// Confidence converts a score into a confidence that never reaches certainty.
func Confidence(score int) float64 {
	return min(float64(score)/maxScore, 0.99)
}

// IsProfileURL reports whether rawURL is a LinkedIn member profile: a
// linkedin.com host (or subdomain) and a non-empty /in/<slug> path.
func IsProfileURL(rawURL string) bool {
	return profileSlug(rawURL) != ""
}

// NormalizeProfileURL canonicalizes a LinkedIn profile URL to https://www.linkedin.com/in/<slug>.
func NormalizeProfileURL(rawURL string) string {
	slug := profileSlug(rawURL)
	if slug == "" {
		return rawURL
	}
	return "https://www.linkedin.com/in/" + slug
}

// profileSlug extracts the lowercase member slug from a LinkedIn profile URL,
// or returns "" when rawURL is not one. A missing scheme is read as https.
func profileSlug(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host != "linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") {
		return ""
	}
	rest, ok := strings.CutPrefix(strings.ToLower(u.Path), "/in/")
	if !ok {
		return ""
	}
	slug, _, _ := strings.Cut(rest, "/")
	return slug
}

var legalSuffixes = []string{
	" pty ltd", " pty. ltd", " pty limited", " limited", " ltd", " inc",
	" llc", " corporation", " corp", " co", " gmbh", " plc", " group",
}

// stripLegalSuffix removes one trailing legal-entity suffix and surrounding punctuation.
func stripLegalSuffix(company string) string {
	c := strings.TrimRight(company, " ,.")
	for _, s := range legalSuffixes {
		if trimmed, ok := strings.CutSuffix(c, s); ok {
			return strings.TrimRight(trimmed, " ,.")
		}
	}
	return c
}

func contains(haystack, needle string) bool {
	return needle != "" && strings.Contains(haystack, needle)
}

// containsWord reports whether needle occurs in haystack bounded by non-word
// characters, so "ed" does not match inside "linkedin".
func containsWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for i := 0; ; {
		j := strings.Index(haystack[i:], needle)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(needle)
		before, _ := utf8.DecodeLastRuneInString(haystack[:start])
		after, _ := utf8.DecodeRuneInString(haystack[end:])
		if !isWordChar(before) && !isWordChar(after) {
			return true
		}
		i = start + 1
	}
}

func isWordChar(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if contains(haystack, n) {
			return true
		}
	}
	return false
}

// compact removes spaces, hyphens and apostrophes so "van dyke" matches slug "vandyke".
func compact(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "'", "").Replace(s)
}
