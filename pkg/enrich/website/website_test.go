package website

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/codeGROOVE-dev/dossier/pkg/contact"
	"github.com/codeGROOVE-dev/dossier/pkg/enrich"
	"github.com/codeGROOVE-dev/dossier/pkg/httpcache"
	"github.com/codeGROOVE-dev/dossier/pkg/identity"
	"github.com/google/go-cmp/cmp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rewrite sends every request to target, keeping the path.
type rewrite struct {
	target *url.URL
	rt     http.RoundTripper
}

func (r rewrite) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	return r.rt.RoundTrip(req)
}

// site serves pages by path and records the paths requested.
type site struct {
	mu    sync.Mutex
	pages map[string]string
	hits  []string
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits = append(s.hits, r.URL.Path)
	s.mu.Unlock()
	body, ok := s.pages[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = io.WriteString(w, body) //nolint:errcheck // test
}

func newClient(t *testing.T, s *site) *Client {
	t.Helper()
	httpcache.SetMinDelay(0)
	server := httptest.NewServer(s)
	t.Cleanup(server.Close)
	target, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	hc := &http.Client{Transport: rewrite{target: target, rt: server.Client().Transport}}
	return New(WithHTTPClient(hc), WithLogger(testLogger()))
}

var steven = identity.Query{FirstName: "Steven", LastName: "Lowy", Company: "LFG"}

func TestEnrich(t *testing.T) {
	s := &site{pages: map[string]string{
		"/": `<html><body><a href="/contact-us">Contact</a> <a href="/careers">Careers</a>
<a href="https://twitter.com/lfg">Twitter</a></body></html>`,
		"/contact-us": `<html><body>
<p><a href="tel:+61299990000">(02) 9999 0000</a>, media 1300 123 456, fax (02) 9999 0001</p>
<p><a href="mailto:Steven.Lowy@lfg.com.au">Steven</a> info@lfg.com.au slowy@lfg.com.au steven@gmail.com</p>
</body></html>`,
	}}
	c := newClient(t, s)

	got := c.Enrich(context.Background(), enrich.Request{Query: steven, Domain: "lfg.com.au"})
	want := enrich.SourceResult{
		Source: Name,
		Status: enrich.StatusSuccess,
		Emails: []contact.Fact{
			{Value: "steven.lowy@lfg.com.au", Kind: contact.Work, Source: Name, Confidence: workEmailConfidence},
			{Value: "slowy@lfg.com.au", Kind: contact.Work, Source: Name, Confidence: workEmailConfidence},
		},
		Phones: []contact.Fact{
			{Value: "+61299990000", Kind: contact.Company, Source: Name, Confidence: companyPhoneConfidence},
			{Value: "1300 123 456", Kind: contact.Company, Source: Name, Confidence: companyPhoneConfidence},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Enrich() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/", "/contact-us"}, s.hits); diff != "" {
		t.Errorf("requested paths mismatch (-want +got):\n%s", diff)
	}
}

func TestEnrichFallbackPaths(t *testing.T) {
	s := &site{pages: map[string]string{
		"/":      `<html><body>Welcome</body></html>`,
		"/about": `<html><body>Reach Steve at steve.lowy@lfg.com.au</body></html>`,
	}}
	c := newClient(t, s)

	got := c.Enrich(context.Background(), enrich.Request{Query: steven, Domain: "lfg.com.au"})
	if got.Status != enrich.StatusSuccess {
		t.Fatalf("Status = %q, want success (error %q)", got.Status, got.Error)
	}
	want := []contact.Fact{{Value: "steve.lowy@lfg.com.au", Kind: contact.Work, Source: Name, Confidence: workEmailConfidence}}
	if diff := cmp.Diff(want, got.Emails); diff != "" {
		t.Errorf("Emails mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/", "/contact", "/contact-us", "/about"}, s.hits); diff != "" {
		t.Errorf("requested paths mismatch (-want +got):\n%s", diff)
	}
}

func TestEnrichFailures(t *testing.T) {
	tests := []struct {
		name   string
		pages  map[string]string
		domain string
		want   enrich.Status
	}{
		{"no domain", nil, "", enrich.StatusSkipped},
		{"home page missing", map[string]string{}, "lfg.com.au", enrich.StatusError},
		{
			"bot protection",
			map[string]string{"/": `<html><title>Just a moment...</title><div id="cf_chl_opt"></div></html>`},
			"lfg.com.au",
			enrich.StatusError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &site{pages: tt.pages}
			c := newClient(t, s)
			got := c.Enrich(context.Background(), enrich.Request{Query: steven, Domain: tt.domain})
			if got.Status != tt.want {
				t.Errorf("Status = %q, want %q", got.Status, tt.want)
			}
			if got.Error == "" {
				t.Error("Error is empty")
			}
			if len(got.Emails) != 0 || len(got.Phones) != 0 {
				t.Errorf("unexpected facts: %+v", got)
			}
		})
	}
}

func TestLocalParts(t *testing.T) {
	got := localParts(identity.Query{FirstName: "Steven", LastName: "O'Brien"})
	for _, want := range []string{"steven.obrien", "sobrien", "steve.obrien", "obriens", "steven"} {
		if !got[want] {
			t.Errorf("localParts() missing %q", want)
		}
	}
	if len(localParts(identity.Query{FirstName: "Cher"})) != 0 {
		t.Error("localParts() without a last name should be empty")
	}
}

func TestOnDomain(t *testing.T) {
	tests := []struct {
		host, domain string
		want         bool
	}{
		{"lfg.com.au", "lfg.com.au", true},
		{"mail.lfg.com.au", "www.lfg.com.au", true},
		{"notlfg.com.au", "lfg.com.au", false},
		{"gmail.com", "lfg.com.au", false},
	}
	for _, tt := range tests {
		if got := onDomain(tt.host, tt.domain); got != tt.want {
			t.Errorf("onDomain(%q, %q) = %v, want %v", tt.host, tt.domain, got, tt.want)
		}
	}
}
