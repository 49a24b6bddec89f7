// Package company defines organization lookups keyed by internet domain.
package company

import (
	"context"
	"errors"
)

// ErrNotFound is returned by providers that know no organization behind a domain.
var ErrNotFound = errors.New("organization not found")

// Organization is what a lookup provider knows about a domain.
type Organization struct {
	Name     string `json:"name,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Industry string `json:"industry,omitempty"`
	Website  string `json:"website,omitempty"`
	Found    bool   `json:"found"`
}

// Provider looks up the organization behind a domain. ErrNotFound means the
// provider answered and knows no organization; other errors mean it could not
// answer.
type Provider interface {
	Lookup(ctx context.Context, domain string) (Organization, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, domain string) (Organization, error)

// Lookup calls f.
func (f ProviderFunc) Lookup(ctx context.Context, domain string) (Organization, error) {
	return f(ctx, domain)
}
