package brave

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codeGROOVE-dev/dossier/pkg/search"
	"github.com/google/go-cmp/cmp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSearcher(t *testing.T) {
	t.Run("parses_response", func(t *testing.T) {
		mockResp := map[string]any{
			"infobox": map[string]any{
				"results": []map[string]any{
					{
						"title":       "Steven Lowy - LFG",
						"url":         "https://www.linkedin.com/in/steven-lowy",
						"description": "Principal, LFG.",
					},
				},
			},
			"web": map[string]any{
				"results": []map[string]any{
					{
						"title":       "Steven Lowy AM - Principal - LFG | LinkedIn",
						"url":         "https://au.linkedin.com/in/stevenlowy",
						"description": "Sydney, New South Wales, Australia. 500+ connections.",
					},
					{
						"title":       "Steven Lowy on LinkedIn: Westfield anniversary",
						"url":         "https://www.linkedin.com/posts/stevenlowy_westfield",
						"description": "Sixty years since the first centre opened.",
					},
				},
			},
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if r.Header.Get("X-Subscription-Token") != "test-key" || r.Header.Get("Accept") != "application/json" {
				t.Errorf("headers = %v", r.Header)
			}
			if q.Get("q") != `"Steven Lowy" site:linkedin.com/in` || q.Get("country") != "au" {
				t.Errorf("query = %s", r.URL.RawQuery)
			}

			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(mockResp); err != nil {
				t.Fatalf("encode response: %v", err)
			}
		}))
		defer server.Close()

		searcher := New("test-key", WithEndpoint(server.URL), WithHTTPClient(server.Client()), WithLogger(testLogger()))

		got, err := searcher.Search(context.Background(), `"Steven Lowy" site:linkedin.com/in`, search.Options{Country: "au"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}

		want := []search.Candidate{
			{URL: "https://www.linkedin.com/in/steven-lowy", Title: "Steven Lowy - LFG", Snippet: "Principal, LFG.", FromAuthoritativeSource: true},
			{URL: "https://au.linkedin.com/in/stevenlowy", Title: "Steven Lowy AM - Principal - LFG | LinkedIn", Snippet: "Sydney, New South Wales, Australia. 500+ connections.", Rank: 1},
			{URL: "https://www.linkedin.com/posts/stevenlowy_westfield", Title: "Steven Lowy on LinkedIn: Westfield anniversary", Snippet: "Sixty years since the first centre opened.", Rank: 2},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Search() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("query_fails_soft", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error": "invalid api key"}`, http.StatusUnauthorized)
		}))
		defer server.Close()

		searcher := New("bad-key", WithEndpoint(server.URL), WithHTTPClient(server.Client()), WithLogger(testLogger()))

		if _, err := searcher.Search(context.Background(), "Gina Rinehart", search.Options{}); err == nil {
			t.Error("expected error for 401 response")
		}
		if got := searcher.Query(context.Background(), "Gina Rinehart", search.Options{}); len(got) != 0 {
			t.Errorf("Query() = %v, want empty on error", got)
		}
	})
}

func TestNew(t *testing.T) {
	s := New("my-api-key")
	if s.apiKey != "my-api-key" {
		t.Errorf("apiKey = %q, want %q", s.apiKey, "my-api-key")
	}
	if s.httpClient == nil {
		t.Error("httpClient is nil")
	}
	if s.endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %q, want default", s.endpoint)
	}
}
