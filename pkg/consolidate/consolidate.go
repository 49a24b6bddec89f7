// Package consolidate merges per-provider contact facts into deduplicated,
// confidence-ordered lists. Facts reported by several providers gain
// confidence for each independent corroboration.
package consolidate

import (
	"slices"

	"github.com/codeGROOVE-dev/dossier/pkg/contact"
	"github.com/codeGROOVE-dev/dossier/pkg/phone"
)

// DefaultIncrement is the confidence added per corroborating source.
const DefaultIncrement = 0.15

// Engine merges facts. The zero value uses DefaultIncrement.
type Engine struct {
	Increment float64
}

// KeyFunc maps a fact value to its deduplication key. An empty key drops the fact.
type KeyFunc func(value string) string

// EmailKey keys emails by their lowercase form.
func EmailKey(value string) string { return contact.NormalizeEmail(value) }

// PhoneKey keys phones by their digits, folding national and international
// forms of a recognized number onto the international one.
func PhoneKey(value string) string {
	if v := phone.Heuristic(value); v.InternationalFormat != "" {
		return contact.PhoneDigits(v.InternationalFormat)
	}
	return contact.PhoneDigits(value)
}

// Emails consolidates email facts in the order given.
func (e Engine) Emails(facts []contact.Fact) []contact.Consolidated {
	merged := e.Merge(facts, EmailKey)
	for i := range merged {
		merged[i].Value = contact.NormalizeEmail(merged[i].Value)
	}
	return merged
}

// Phones consolidates phone facts in the order given.
func (e Engine) Phones(facts []contact.Fact) []contact.Consolidated {
	return e.Merge(facts, PhoneKey)
}

// Merge deduplicates facts by key. The first occurrence seeds the merged
// fact; each later occurrence from a new source appends that source, raises
// confidence by the increment (capped at 1.0) and upgrades the kind when the
// later kind has higher priority. A source repeating a value it already
// reported adds nothing. The result is stable-sorted by confidence, highest first.
func (e Engine) Merge(facts []contact.Fact, key KeyFunc) []contact.Consolidated {
	inc := e.Increment
	if inc <= 0 {
		inc = DefaultIncrement
	}

	var out []contact.Consolidated
	index := make(map[string]int)
	for _, f := range facts {
		k := key(f.Value)
		if k == "" {
			continue
		}
		i, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, contact.Consolidated{
				Value:       f.Value,
				Kind:        f.Kind,
				Confidence:  clamp(f.Confidence),
				Sources:     []string{f.Source},
				Occurrences: 1,
			})
			continue
		}

		c := &out[i]
		if slices.Contains(c.Sources, f.Source) {
			continue
		}
		c.Sources = append(c.Sources, f.Source)
		c.Occurrences++
		c.Confidence = clamp(c.Confidence + inc)
		if f.Kind.Priority() > c.Kind.Priority() {
			c.Kind = f.Kind
		}
	}

	slices.SortStableFunc(out, func(a, b contact.Consolidated) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return 0
		}
	})
	return out
}

func clamp(v float64) float64 {
	return max(0, min(v, 1.0))
}
