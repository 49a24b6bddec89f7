package match

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/codeGROOVE-dev/dossier/pkg/identity"
	"github.com/codeGROOVE-dev/dossier/pkg/search"
	"github.com/google/go-cmp/cmp"
)

// fakeSearch answers queries by strategy prefix and records every query.
type fakeSearch struct {
	answers map[string][]search.Candidate // keyed by exact query
	queries []string
}

func (f *fakeSearch) Query(_ context.Context, text string, _ search.Options) []search.Candidate {
	f.queries = append(f.queries, text)
	return f.answers[text]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func lowy() identity.Query {
	return identity.Query{FirstName: "Steven", LastName: "Lowy", Company: "LFG", Location: "Sydney"}
}

func TestScenarioKnowledgePanel(t *testing.T) {
	q := lowy()
	provider := &fakeSearch{answers: map[string][]search.Candidate{
		`"Steven Lowy" "LFG" site:linkedin.com/in`: {
			{URL: "https://www.linkedin.com/in/steven-lowy", Title: "Steven Lowy - LFG", FromAuthoritativeSource: true},
		},
	}}

	s, err := New(provider, 60, WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	res := s.Find(context.Background(), q)
	if res.Best == nil {
		t.Fatal("Find() returned no match")
	}

	want := &Match{
		URL:        "https://www.linkedin.com/in/steven-lowy",
		Title:      "Steven Lowy - LFG",
		Score:      95,
		Confidence: 0.95,
		Strategy:   "exact_company",
		Reasons:    []string{"authoritative", "first_name", "last_name", "company"},
	}
	if diff := cmp.Diff(want, res.Best); diff != "" {
		t.Errorf("Find() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"exact_company"}, res.StrategiesTried); diff != "" {
		t.Errorf("StrategiesTried mismatch (-want +got):\n%s", diff)
	}
}

func TestStrategies(t *testing.T) {
	q := identity.Query{FirstName: "Steven", LastName: "Lowy", Company: "LFG", Title: "Principal", Location: "Sydney"}
	var got []string
	for _, s := range Strategies(q) {
		got = append(got, s.Name+" | "+s.Query)
	}
	want := []string{
		`exact_company | "Steven Lowy" "LFG" site:linkedin.com/in`,
		`title_company | "Steven Lowy" Principal LFG site:linkedin.com/in`,
		`loose_company | Steven Lowy LFG site:linkedin.com/in`,
		`nickname:Steve | "Steve Lowy" LFG site:linkedin.com/in`,
		`nickname:Stevie | "Stevie Lowy" LFG site:linkedin.com/in`,
		`location | "Steven Lowy" Sydney site:linkedin.com/in`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Strategies() mismatch (-want +got):\n%s", diff)
	}
}

func TestStrategiesWithoutCompany(t *testing.T) {
	q := identity.Query{FirstName: "Zephyrine", LastName: "Moss"}
	got := Strategies(q)
	if len(got) != 1 || got[0].Name != "name" {
		t.Errorf("Strategies() = %+v, want single name strategy", got)
	}
}

func TestEarlyExitIsExact(t *testing.T) {
	q := lowy()
	strategies := Strategies(q)

	weak := search.Candidate{URL: "https://www.linkedin.com/in/someone", Title: "Steven Smith"}                     // 20
	good := search.Candidate{URL: "https://linkedin.com/in/steven-lowy-123", Title: "Steven Lowy - LFG | LinkedIn"} // 60

	provider := &fakeSearch{answers: map[string][]search.Candidate{
		strategies[0].Query: {weak},
		strategies[1].Query: {good},
		strategies[2].Query: {good},
	}}

	s, err := New(provider, 60, WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	res := s.Find(context.Background(), q)

	if len(provider.queries) != 2 {
		t.Fatalf("ran %d strategies, want exactly 2: %v", len(provider.queries), provider.queries)
	}
	if res.Best == nil || res.Best.Score != 60 {
		t.Fatalf("Best = %+v, want score 60", res.Best)
	}

	// Raising the threshold above every score runs all strategies.
	provider.queries = nil
	s, err = New(provider, 61, WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	res = s.Find(context.Background(), q)
	if len(provider.queries) != len(strategies) {
		t.Errorf("ran %d strategies, want all %d", len(provider.queries), len(strategies))
	}
	if diff := cmp.Diff(len(strategies), len(res.StrategiesTried)); diff != "" {
		t.Errorf("StrategiesTried length mismatch: %s", diff)
	}
}

func TestBestTrackedAcrossStrategies(t *testing.T) {
	q := lowy()
	strategies := Strategies(q)

	better := search.Candidate{URL: "https://www.linkedin.com/in/steven-lowy", Title: "Steven Lowy - LFG"}   // 60
	worse := search.Candidate{URL: "https://www.linkedin.com/in/s-lowy-99", Title: "Steven Lowy | LinkedIn"} // 40

	provider := &fakeSearch{answers: map[string][]search.Candidate{
		strategies[0].Query: {better},
		strategies[1].Query: {worse},
	}}

	s, err := New(provider, 100, WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	res := s.Find(context.Background(), q)
	if res.Best == nil || res.Best.URL != "https://www.linkedin.com/in/steven-lowy" {
		t.Errorf("Best = %+v, want earlier higher-scoring hit", res.Best)
	}
	if res.Best.Strategy != strategies[0].Name {
		t.Errorf("Best.Strategy = %q, want %q", res.Best.Strategy, strategies[0].Name)
	}
}

func TestNoProfileCandidates(t *testing.T) {
	q := lowy()
	provider := &fakeSearch{answers: map[string][]search.Candidate{
		Strategies(q)[0].Query: {
			{URL: "https://en.wikipedia.org/wiki/Steven_Lowy", Title: "Steven Lowy - Wikipedia", FromAuthoritativeSource: true},
			{URL: "https://www.linkedin.com/company/lfg", Title: "LFG | LinkedIn"},
		},
	}}
	s, err := New(provider, 50, WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if res := s.Find(context.Background(), q); res.Best != nil {
		t.Errorf("Find() = %+v, want nil for non-profile hits", res.Best)
	}
}

func TestNewRejectsBadThreshold(t *testing.T) {
	for _, th := range []int{0, -1, 101} {
		if _, err := New(&fakeSearch{}, th); !errors.Is(err, ErrBadThreshold) {
			t.Errorf("New(threshold=%d) error = %v, want ErrBadThreshold", th, err)
		}
	}
}

func TestScoreMonotonic(t *testing.T) {
	q := identity.Query{FirstName: "Steven", LastName: "Lowy", Company: "LFG", Title: "Principal", Location: "Sydney"}

	// Each step adds one more matching field; score must never drop.
	steps := []search.Candidate{
		{URL: "https://www.linkedin.com/in/x"},
		{URL: "https://www.linkedin.com/in/steven-lowy"},
		{URL: "https://www.linkedin.com/in/steven-lowy", Title: "Steven"},
		{URL: "https://www.linkedin.com/in/steven-lowy", Title: "Steven Lowy"},
		{URL: "https://www.linkedin.com/in/steven-lowy", Title: "Steven Lowy - LFG"},
		{URL: "https://www.linkedin.com/in/steven-lowy", Title: "Steven Lowy - Principal - LFG"},
		{URL: "https://www.linkedin.com/in/steven-lowy", Title: "Steven Lowy - Principal - LFG", Snippet: "Sydney"},
		{URL: "https://www.linkedin.com/in/steven-lowy", Title: "Steven Lowy - Principal - LFG", Snippet: "Sydney", FromAuthoritativeSource: true},
	}
	prev := -1
	for i, c := range steps {
		got, _ := Score(q, c)
		if got < prev {
			t.Errorf("step %d: score %d dropped below %d", i, got, prev)
		}
		prev = got
	}
	if prev != 100 {
		t.Errorf("full match score = %d, want clamped 100", prev)
	}
	if Confidence(prev) != 0.99 {
		t.Errorf("Confidence(100) = %v, want 0.99", Confidence(prev))
	}
}

func TestScoreRules(t *testing.T) {
	tests := []struct {
		name      string
		query     identity.Query
		candidate search.Candidate
		want      int
	}{
		{
			name:      "nickname first name",
			query:     identity.Query{FirstName: "William", LastName: "Gates"},
			candidate: search.Candidate{URL: "https://linkedin.com/in/bgates", Title: "Bill Gates"},
			want:      WeightFirstName + WeightLastName,
		},
		{
			name:      "last name only in url",
			query:     identity.Query{FirstName: "Mary", LastName: "van Dyke"},
			candidate: search.Candidate{URL: "https://linkedin.com/in/mary-van-dyke", Title: "Mary V. | LinkedIn"},
			want:      WeightFirstName + WeightLastNameInURL,
		},
		{
			name:      "company legal suffix stripped",
			query:     identity.Query{FirstName: "Ann", LastName: "Lee", Company: "Acme Pty Ltd"},
			candidate: search.Candidate{URL: "https://linkedin.com/in/annlee", Title: "Ann Lee - Acme"},
			want:      WeightFirstName + WeightLastName + WeightCompany,
		},
		{
			name:      "title and location in snippet",
			query:     identity.Query{FirstName: "Ann", LastName: "Lee", Title: "CFO", Location: "Perth"},
			candidate: search.Candidate{URL: "https://linkedin.com/in/annlee", Snippet: "CFO at Acme. Perth, Western Australia"},
			want:      WeightLastNameInURL + WeightTitle + WeightLocation,
		},
		{
			name:      "nickname inside linkedin suffix",
			query:     identity.Query{FirstName: "Edward", LastName: "Smith", Company: "Acme", Location: "Sydney"},
			candidate: search.Candidate{URL: "https://www.linkedin.com/in/jane-smith", Title: "Jane Smith - Acme | LinkedIn"},
			want:      WeightLastName + WeightCompany,
		},
		{
			name:      "nickname inside job title",
			query:     identity.Query{FirstName: "Anthony", LastName: "Smith", Company: "Acme"},
			candidate: search.Candidate{URL: "https://www.linkedin.com/in/jane-smith", Title: "Jane Smith - Consultant - Acme"},
			want:      WeightLastName + WeightCompany,
		},
		{
			name:      "nickname as whole word",
			query:     identity.Query{FirstName: "Edward", LastName: "Smith", Company: "Acme"},
			candidate: search.Candidate{URL: "https://www.linkedin.com/in/ed-smith", Title: "Ed Smith - Acme | LinkedIn"},
			want:      WeightFirstName + WeightLastName + WeightCompany,
		},
		{
			name:      "last name inside longer word",
			query:     identity.Query{FirstName: "Ann", LastName: "Lee", Company: "Acme"},
			candidate: search.Candidate{URL: "https://www.linkedin.com/in/ann-lee", Title: "Ann Smith - Fleet Manager - Acme"},
			want:      WeightFirstName + WeightLastNameInURL + WeightCompany,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reasons := Score(tt.query, tt.candidate)
			if got != tt.want {
				t.Errorf("Score() = %d (%s), want %d", got, strings.Join(reasons, ","), tt.want)
			}
		})
	}
}

func TestFirstNameNeedsWholeWord(t *testing.T) {
	for _, tt := range []struct {
		first, title string
	}{
		{"Edward", "Jane Smith - Acme | LinkedIn"},
		{"Anthony", "Jane Smith - Consultant"},
		{"Patrick", "Jane Smith - Patent Attorney"},
		{"Daniel", "Jane Smith - Sydney Dance Company"},
		{"Benjamin", "Jane Smith - Benefits Lead"},
	} {
		_, reasons := Score(identity.Query{FirstName: tt.first, LastName: "Smith"}, search.Candidate{URL: "https://www.linkedin.com/in/jane-smith", Title: tt.title})
		if slices.Contains(reasons, "first_name") {
			t.Errorf("Score(%s, %q) reasons = %v, want no first_name", tt.first, tt.title, reasons)
		}
	}
}

func TestIsProfileURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://www.linkedin.com/in/steven-lowy", true},
		{"https://au.linkedin.com/in/Steven-Lowy/?trk=x", true},
		{"linkedin.com/in/annlee", true},
		{"https://notlinkedin.com/in/x", false},
		{"https://example.com/redirect?u=linkedin.com/in/x", false},
		{"https://www.linkedin.com/in/", false},
		{"https://www.linkedin.com/company/lfg", false},
		{"https://www.linkedin.com/posts/stevenlowy_westfield", false},
	}
	for _, tt := range tests {
		if got := IsProfileURL(tt.in); got != tt.want {
			t.Errorf("IsProfileURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeProfileURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://au.linkedin.com/in/Steven-Lowy/?trk=x", "https://www.linkedin.com/in/steven-lowy"},
		{"linkedin.com/in/annlee", "https://www.linkedin.com/in/annlee"},
		{"https://example.com/team", "https://example.com/team"},
		{"https://example.com/r?u=linkedin.com/in/x", "https://example.com/r?u=linkedin.com/in/x"},
	}
	for _, tt := range tests {
		if got := NormalizeProfileURL(tt.in); got != tt.want {
			t.Errorf("NormalizeProfileURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
