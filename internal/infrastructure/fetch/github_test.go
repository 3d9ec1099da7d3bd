package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"UpdateSentinel/internal/domain"
)

func TestFetchGitHubReleases(t *testing.T) {
	t.Parallel()

	published := time.Date(2026, time.July, 20, 14, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/tool/releases" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		releases := make([]map[string]any, 0, 12)
		for i := 0; i < 12; i++ {
			releases = append(releases, map[string]any{
				"name":         fmt.Sprintf("v1.%d.0", 12-i),
				"tag_name":     fmt.Sprintf("v1.%d.0", 12-i),
				"body":         "release notes",
				"draft":        false,
				"prerelease":   false,
				"html_url":     fmt.Sprintf("https://github.com/acme/tool/releases/tag/v1.%d.0", 12-i),
				"published_at": published.Format(time.RFC3339),
			})
		}
		_ = json.NewEncoder(w).Encode(releases)
	}))
	defer server.Close()

	f := New(server.Client(), nil)
	f.githubAPIBase = server.URL

	candidates, err := f.Fetch(context.Background(), domain.Source{
		Type: domain.SourceAPI,
		URL:  "https://github.com/acme/tool",
	})
	if err != nil {
		t.Fatalf("fetch github: %v", err)
	}

	if len(candidates) != maxReleases {
		t.Fatalf("expected cap of %d releases, got %d", maxReleases, len(candidates))
	}
	first := candidates[0]
	if first.Title != "v1.12.0" {
		t.Fatalf("unexpected title: %s", first.Title)
	}
	if first.URL != "https://github.com/acme/tool/releases/tag/v1.12.0" {
		t.Fatalf("candidate url should be the release html url, got %s", first.URL)
	}
	if !first.PublishedAt.Equal(published) {
		t.Fatalf("unexpected published time: %v", first.PublishedAt)
	}
	if first.Fingerprint != domain.Fingerprint(first.Raw) {
		t.Fatalf("fingerprint does not match raw payload")
	}
}

func TestFetchGitHubBadURL(t *testing.T) {
	t.Parallel()

	f := New(nil, nil)
	_, err := f.Fetch(context.Background(), domain.Source{
		Type: domain.SourceAPI,
		URL:  "https://example.org/not-github",
	})
	if err == nil {
		t.Fatalf("expected error for non-github URL")
	}
}

func TestFetchGitHubTitleFallsBackToTag(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"name": "", "tag_name": "v0.3.1", "html_url": "https://github.com/acme/tool/releases/tag/v0.3.1", "published_at": "2026-01-05T00:00:00Z"},
		})
	}))
	defer server.Close()

	f := New(server.Client(), nil)
	f.githubAPIBase = server.URL

	candidates, err := f.Fetch(context.Background(), domain.Source{Type: "GITHUB", URL: "https://github.com/acme/tool"})
	if err != nil {
		t.Fatalf("fetch github: %v", err)
	}
	if candidates[0].Title != "v0.3.1" {
		t.Fatalf("expected tag fallback title, got %s", candidates[0].Title)
	}
}
