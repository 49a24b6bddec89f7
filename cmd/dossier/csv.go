package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/codeGROOVE-dev/dossier/pkg/identity"
)

// columns maps accepted header names to query fields.
var columns = map[string]func(*identity.Query, string){
	"first_name":  func(q *identity.Query, v string) { q.FirstName = v },
	"first":       func(q *identity.Query, v string) { q.FirstName = v },
	"last_name":   func(q *identity.Query, v string) { q.LastName = v },
	"last":        func(q *identity.Query, v string) { q.LastName = v },
	"company":     func(q *identity.Query, v string) { q.Company = v },
	"title":       func(q *identity.Query, v string) { q.Title = v },
	"location":    func(q *identity.Query, v string) { q.Location = v },
	"domain":      func(q *identity.Query, v string) { q.Domain = v },
	"profile_url": func(q *identity.Query, v string) { q.ProfileURL = v },
	"linkedin":    func(q *identity.Query, v string) { q.ProfileURL = v },
}

// readQueries parses a CSV with a header row. Unknown columns are ignored;
// a "name" column is split into first and last when those are absent.
func readQueries(r io.Reader) ([]identity.Query, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty CSV: header row required")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	var queries []identity.Query
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		var q identity.Query
		var name string
		blank := true
		for i, v := range rec {
			if i >= len(header) {
				break
			}
			v = strings.TrimSpace(v)
			if v != "" {
				blank = false
			}
			if header[i] == "name" {
				name = v
				continue
			}
			if set, ok := columns[header[i]]; ok {
				set(&q, v)
			}
		}
		if blank {
			continue
		}
		if name != "" && q.FirstName == "" && q.LastName == "" {
			parsed := identity.Parse(name)
			q.FirstName, q.LastName = parsed.FirstName, parsed.LastName
		}
		queries = append(queries, q)
	}
	return queries, nil
}
