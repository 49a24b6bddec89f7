// Package identity defines the partially-known person a resolution starts from.
package identity

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultRegion is used when a query carries no location.
const DefaultRegion = "Australia"

// ErrInvalidInput is returned when mandatory identity fields are missing.
var ErrInvalidInput = errors.New("invalid input")

// Query is the identity being resolved.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Query struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Company    string `json:"company,omitempty"`
	Title      string `json:"title,omitempty"`
	Location   string `json:"location,omitempty"`
	Domain     string `json:"domain,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
}

// Normalize trims every field and fills Location with region when it is empty.
// An empty region falls back to DefaultRegion.
func (q Query) Normalize(region string) Query {
	if region == "" {
		region = DefaultRegion
	}
	q.FirstName = strings.TrimSpace(q.FirstName)
	q.LastName = strings.TrimSpace(q.LastName)
	q.Company = strings.TrimSpace(q.Company)
	q.Title = strings.TrimSpace(q.Title)
	q.Location = strings.TrimSpace(q.Location)
	q.Domain = strings.ToLower(strings.TrimSpace(q.Domain))
	q.ProfileURL = strings.TrimSpace(q.ProfileURL)
	if q.Location == "" {
		q.Location = region
	}
	return q
}

// Validate reports whether the query has the fields every resolution needs.
func (q Query) Validate() error {
	if strings.TrimSpace(q.FirstName) == "" {
		return fmt.Errorf("%w: first name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(q.LastName) == "" {
		return fmt.Errorf("%w: last name is required", ErrInvalidInput)
	}
	return nil
}

// FullName returns "First Last".
func (q Query) FullName() string {
	return strings.TrimSpace(q.FirstName + " " + q.LastName)
}

// Parse splits a free-form "First Last" name into a query.
// Everything after the first word is treated as the last name.
func Parse(name string) Query {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return Query{}
	case 1:
		return Query{FirstName: fields[0]}
	default:
		return Query{FirstName: fields[0], LastName: strings.Join(fields[1:], " ")}
	}
}
