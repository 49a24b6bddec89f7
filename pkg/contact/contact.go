// Package contact defines the email and phone facts that providers report and
// the consolidated form they are merged into.
package contact

import (
	"regexp"
	"strings"
	"unicode"
)

// Kind classifies a contact fact.
type Kind string

// Known kinds.
const (
	Work     Kind = "work"
	Personal Kind = "personal"
	Mobile   Kind = "mobile"
	Landline Kind = "landline"
	Company  Kind = "company"
)

// Priority ranks kinds for consolidation: a duplicate with a higher-priority
// kind upgrades the merged fact. Work and mobile rank highest, company lowest.
func (k Kind) Priority() int {
	switch k {
	case Work, Mobile:
		return 4
	case Personal:
		return 3
	case Landline:
		return 2
	case Company:
		return 1
	default:
		return 0
	}
}

// Fact is a single email or phone reported by one provider.
type Fact struct {
	Value      string  `json:"value"`
	Kind       Kind    `json:"kind"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// Validation is the outcome of checking a phone number.
type Validation struct {
	Valid               bool   `json:"valid"`
	LineType            string `json:"line_type,omitempty"`
	Location            string `json:"location,omitempty"`
	InternationalFormat string `json:"international_format,omitempty"`
	Source              string `json:"source,omitempty"`
}

// Consolidated is a fact merged across every provider that reported it.
// Occurrences always equals len(Sources).
//
//nolint:govet // fieldalignment: intentional layout for readability
type Consolidated struct {
	Value       string      `json:"value"`
	Kind        Kind        `json:"kind"`
	Confidence  float64     `json:"confidence"`
	Sources     []string    `json:"sources"`
	Occurrences int         `json:"occurrences"`
	Validation  *Validation `json:"validation,omitempty"`
}

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)

// consumerDomains are mailbox providers that never host a company address.
var consumerDomains = map[string]bool{
	"gmail.com": true, "googlemail.com": true,
	"outlook.com": true, "hotmail.com": true, "live.com": true, "msn.com": true,
	"proton.me": true, "protonmail.com": true, "pm.me": true,
	"yahoo.com": true, "yahoo.com.au": true, "ymail.com": true, "rocketmail.com": true,
	"icloud.com": true, "me.com": true, "mac.com": true,
	"aol.com":  true,
	"zoho.com": true, "zohomail.com": true,
	"gmx.com": true, "gmx.net": true,
	"mail.com":     true,
	"fastmail.com": true, "fastmail.fm": true,
	"tutanota.com": true, "tuta.io": true,
	"bigpond.com": true, "bigpond.net.au": true, "optusnet.com.au": true, "iinet.net.au": true,
}

// NormalizeEmail trims and lowercases an email address.
// Values that are not syntactically emails are returned as "".
func NormalizeEmail(email string) string {
	e := strings.ToLower(strings.TrimSpace(email))
	e = strings.TrimPrefix(e, "mailto:")
	if !emailRegex.MatchString(e) {
		return ""
	}
	return e
}

// IsConsumerEmail reports whether email is hosted by a consumer mailbox provider.
func IsConsumerEmail(email string) bool {
	_, host, ok := strings.Cut(NormalizeEmail(email), "@")
	return ok && consumerDomains[host]
}

// PhoneDigits strips every non-digit character.
func PhoneDigits(number string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
}

// NewEmail builds an email fact, or returns false when the value is not an email.
// A work address on a consumer mailbox domain is recorded as personal.
func NewEmail(value string, kind Kind, source string, confidence float64) (Fact, bool) {
	v := NormalizeEmail(value)
	if v == "" {
		return Fact{}, false
	}
	if kind == Work && IsConsumerEmail(v) {
		kind = Personal
	}
	return Fact{Value: v, Kind: kind, Source: source, Confidence: confidence}, true
}

// NewPhone builds a phone fact, or returns false when the value has no digits.
// The value keeps its original formatting; consolidation keys on digits.
func NewPhone(value string, kind Kind, source string, confidence float64) (Fact, bool) {
	v := strings.TrimSpace(value)
	if PhoneDigits(v) == "" {
		return Fact{}, false
	}
	return Fact{Value: v, Kind: kind, Source: source, Confidence: confidence}, true
}
