package hunter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codeGROOVE-dev/dossier/pkg/contact"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich"
	"github.com/codeGROOVE-dev/dossier/pkg/identity"
	"github.com/google/go-cmp/cmp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnrich(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("domain") != "acme.com" || q.Get("first_name") != "John" || q.Get("api_key") != "k" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"data":{"email":"John.Smith@Acme.com","score":97,"phone_number":"+1 415 555 2671","linkedin_url":"https://www.linkedin.com/in/jsmith","verification":{"status":"valid"}}}`)) //nolint:errcheck // test
	}))
	defer server.Close()

	c := New("k", WithEndpoint(server.URL), WithHTTPClient(server.Client()), WithLogger(testLogger()))
	got := c.Enrich(context.Background(), enrich.Request{
		Query:  identity.Query{FirstName: "John", LastName: "Smith", Company: "Acme"},
		Domain: "acme.com",
	})
	want := enrich.SourceResult{
		Source:     Name,
		Status:     enrich.StatusSuccess,
		Emails:     []contact.Fact{{Value: "john.smith@acme.com", Kind: contact.Work, Source: Name, Confidence: 0.9}},
		Phones:     []contact.Fact{{Value: "+1 415 555 2671", Kind: contact.Company, Source: Name, Confidence: 0.8}},
		ProfileURL: "https://www.linkedin.com/in/jsmith",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Enrich() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnrichInvalidEmailDropped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("company") != "Acme" {
			t.Errorf("expected company fallback, got %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"data":{"email":"x@acme.com","verification":{"status":"invalid"}}}`)) //nolint:errcheck // test
	}))
	defer server.Close()

	c := New("k", WithEndpoint(server.URL), WithHTTPClient(server.Client()), WithLogger(testLogger()))
	got := c.Enrich(context.Background(), enrich.Request{Query: identity.Query{FirstName: "J", LastName: "S", Company: "Acme"}})
	if got.Status != enrich.StatusSuccess || len(got.Emails) != 0 {
		t.Errorf("Enrich() = %+v, want success with no emails", got)
	}
}

func TestEnrichSkippedWithoutDomainOrCompany(t *testing.T) {
	c := New("k", WithLogger(testLogger()))
	got := c.Enrich(context.Background(), enrich.Request{Query: identity.Query{FirstName: "J", LastName: "S"}})
	if got.Status != enrich.StatusSkipped {
		t.Errorf("Status = %q, want skipped", got.Status)
	}
}
