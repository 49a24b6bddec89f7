package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/contact"
	"github.com/codeGROOVE-dev/dossier/pkg/httpcache"
	"github.com/codeGROOVE-dev/dossier/pkg/identity"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type fakeProvider struct {
	name  string
	fn    func(ctx context.Context, req Request) SourceResult
	mu    sync.Mutex
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Enrich(ctx context.Context, req Request) SourceResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, req)
}

type recordingObserver struct {
	mu   sync.Mutex
	seen map[string]string
}

func (o *recordingObserver) ObserveProvider(provider, status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.seen == nil {
		o.seen = make(map[string]string)
	}
	o.seen[provider] = status
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ok(name, email string) *fakeProvider {
	return &fakeProvider{name: name, fn: func(context.Context, Request) SourceResult {
		return NewBuilder(name).Email(email, contact.Work, 0.9).Result()
	}}
}

func TestCollectIsolatesFailures(t *testing.T) {
	panicky := &fakeProvider{name: "panicky", fn: func(context.Context, Request) SourceResult {
		panic("boom")
	}}
	broken := &fakeProvider{name: "broken", fn: func(context.Context, Request) SourceResult {
		return Failed("broken", &httpcache.HTTPError{StatusCode: 401, URL: "https://api.example.com/?api_key=secret"})
	}}
	slow := &fakeProvider{name: "slow", fn: func(ctx context.Context, _ Request) SourceResult {
		<-ctx.Done()
		return Failed("slow", ctx.Err())
	}}
	obs := &recordingObserver{}
	c := NewCollector(WithLogger(testLogger()), WithTimeout(50*time.Millisecond), WithObserver(obs))

	req := Request{Query: identity.Query{FirstName: "Ann", LastName: "Lee", Location: "Perth"}}
	got := c.Collect(context.Background(), req, []Registration{
		{Provider: ok("first", "ann@acme.com")},
		{Provider: panicky},
		{Provider: broken},
		{Provider: slow},
		{Provider: ok("last", "ann.lee@acme.com")},
	})

	want := []SourceResult{
		{Source: "first", Status: StatusSuccess, Emails: []contact.Fact{{Value: "ann@acme.com", Kind: contact.Work, Source: "first", Confidence: 0.9}}},
		{Source: "panicky", Status: StatusError, Error: "panic: boom"},
		{Source: "broken", Status: StatusError, Error: "HTTP 401"},
		{Source: "slow", Status: StatusError, Error: "timeout"},
		{Source: "last", Status: StatusSuccess, Emails: []contact.Fact{{Value: "ann.lee@acme.com", Kind: contact.Work, Source: "last", Confidence: 0.9}}},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(SourceResult{}, "Duration")); diff != "" {
		t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
	}
	if len(obs.seen) != 5 || obs.seen["panicky"] != "error" || obs.seen["first"] != "success" {
		t.Errorf("observer saw %v", obs.seen)
	}
}

func TestCollectAbandonsProviderIgnoringContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stuck := &fakeProvider{name: "stuck", fn: func(context.Context, Request) SourceResult {
		<-release
		return SourceResult{}
	}}
	c := NewCollector(WithLogger(testLogger()), WithTimeout(20*time.Millisecond))

	start := time.Now()
	got := c.Collect(context.Background(), Request{}, []Registration{{Provider: stuck}})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Collect() took %v, want bounded by timeout", elapsed)
	}
	if got[0].Status != StatusError || got[0].Error != "timeout" {
		t.Errorf("got %+v, want timeout error", got[0])
	}
}

func TestCollectRegionGate(t *testing.T) {
	regional := ok("whitepages", "a@b.com")
	regs := []Registration{{Provider: regional, Regions: []string{"Australia", "Sydney", "NSW"}}}
	c := NewCollector(WithLogger(testLogger()))

	got := c.Collect(context.Background(), Request{Query: identity.Query{Location: "San Francisco, CA"}}, regs)
	if got[0].Status != StatusSkipped {
		t.Errorf("Status = %q, want skipped", got[0].Status)
	}
	if regional.calls != 0 {
		t.Errorf("gated provider called %d times", regional.calls)
	}

	got = c.Collect(context.Background(), Request{Query: identity.Query{Location: "north sydney"}}, regs)
	if got[0].Status != StatusSuccess || regional.calls != 1 {
		t.Errorf("got %+v after %d calls, want one successful call", got[0], regional.calls)
	}
}

func TestCollectRunsConcurrently(t *testing.T) {
	const n = 4
	var wg sync.WaitGroup
	wg.Add(n)
	var regs []Registration
	for i := range n {
		regs = append(regs, Registration{Provider: &fakeProvider{name: fmt.Sprint(i), fn: func(context.Context, Request) SourceResult {
			wg.Done()
			wg.Wait() // deadlocks unless every provider runs at once
			return SourceResult{}
		}}})
	}
	c := NewCollector(WithLogger(testLogger()), WithTimeout(5*time.Second))
	for _, r := range c.Collect(context.Background(), Request{}, regs) {
		if r.Status != StatusSuccess {
			t.Errorf("%s: status %q (%s)", r.Source, r.Status, r.Error)
		}
	}
}

func TestInRegion(t *testing.T) {
	kw := []string{"Australia", " melbourne "}
	tests := map[string]bool{
		"Melbourne VIC":   true,
		"AUSTRALIA":       true,
		"Austin, TX":      false,
		"":                false,
		"South Australia": true,
	}
	for loc, want := range tests {
		if got := InRegion(loc, kw); got != want {
			t.Errorf("InRegion(%q) = %v, want %v", loc, got, want)
		}
	}
}

func TestShortError(t *testing.T) {
	long := errors.New(strings.Repeat("x", 500))
	if got := ShortError(long); len(got) != maxErrorLen+3 {
		t.Errorf("ShortError() length %d", len(got))
	}
	if got := ShortError(fmt.Errorf("call: %w", context.DeadlineExceeded)); got != "timeout" {
		t.Errorf("ShortError() = %q", got)
	}
	if ShortError(nil) != "" {
		t.Error("ShortError(nil) should be empty")
	}
}

func TestBuilderDropsJunk(t *testing.T) {
	got := NewBuilder("x").
		Email("", contact.Work, 0.9).
		Email("not an email", contact.Work, 0.9).
		Phone("n/a", contact.Mobile, 0.8).
		Phone("0412 345 678", contact.Mobile, 0.8).
		Profile(" ").
		Profile("https://linkedin.com/in/a").
		Profile("https://linkedin.com/in/b").
		Result()
	if len(got.Emails) != 0 || len(got.Phones) != 1 || got.ProfileURL != "https://linkedin.com/in/a" {
		t.Errorf("Builder result = %+v", got)
	}
}
