package fetch

import (
	"context"
	"strings"
	"testing"
	"time"

	"UpdateSentinel/internal/domain"
)

func TestFetchHTMLWithSelector(t *testing.T) {
	t.Parallel()

	page := `<html><body>
	  <div class="entry"><h3>Model picker redesigned</h3><time datetime="2026-08-01T12:00:00Z">Aug 1</time><p>The picker moved.</p></div>
	  <div class="entry"><h3>Connectors v1 retired</h3><p>Posted 2026-08-02 by acme.</p></div>
	  <div class="noise"><h3>Careers update</h3></div>
	</body></html>`

	server, f := serveFixture(t, page)
	candidates, err := f.Fetch(context.Background(), domain.Source{
		Type:        domain.SourceHTML,
		URL:         server.URL + "/changelog",
		CSSSelector: ".entry",
	})
	if err != nil {
		t.Fatalf("fetch html: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Title != "Model picker redesigned" {
		t.Fatalf("unexpected title: %s", candidates[0].Title)
	}
	if candidates[0].URL != server.URL+"/changelog" {
		t.Fatalf("candidate url should be the page url, got %s", candidates[0].URL)
	}
	want := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	if !candidates[0].PublishedAt.Equal(want) {
		t.Fatalf("time[datetime] should win, got %v", candidates[0].PublishedAt)
	}

	inline := time.Date(2026, time.August, 2, 0, 0, 0, 0, time.UTC)
	if !candidates[1].PublishedAt.Equal(inline) {
		t.Fatalf("inline date pattern should be used, got %v", candidates[1].PublishedAt)
	}
	if !strings.Contains(candidates[1].Raw, "Connectors v1 retired") {
		t.Fatalf("raw should carry the element markup")
	}
}

func TestFetchHTMLHeadingFallback(t *testing.T) {
	t.Parallel()

	page := `<html><body>
	  <h1>Acme Docs</h1>
	  <h2>New Feature Release</h2>
	  <h2>About the company</h2>
	</body></html>`

	server, f := serveFixture(t, page)
	candidates, err := f.Fetch(context.Background(), domain.Source{
		Type: domain.SourceHTML,
		URL:  server.URL,
	})
	if err != nil {
		t.Fatalf("fetch html: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate from heading fallback, got %d", len(candidates))
	}
	if candidates[0].Title != "New Feature Release" {
		t.Fatalf("unexpected title: %s", candidates[0].Title)
	}
}

func TestFetchHTMLFallbackCap(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 25; i++ {
		sb.WriteString("<h2>Release note</h2>")
	}
	sb.WriteString("</body></html>")

	server, f := serveFixture(t, sb.String())
	candidates, err := f.Fetch(context.Background(), domain.Source{Type: domain.SourceHTML, URL: server.URL})
	if err != nil {
		t.Fatalf("fetch html: %v", err)
	}

	if len(candidates) != maxFallbackHeadings {
		t.Fatalf("expected cap of %d, got %d", maxFallbackHeadings, len(candidates))
	}
}

func TestFetchHTMLChangelogPattern(t *testing.T) {
	t.Parallel()

	page := `<html><body>
	  <div class="changelog-item"><h4>API rate limits doubled</h4></div>
	</body></html>`

	server, f := serveFixture(t, page)
	candidates, err := f.Fetch(context.Background(), domain.Source{Type: domain.SourceHTML, URL: server.URL})
	if err != nil {
		t.Fatalf("fetch html: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate from changelog pattern, got %d", len(candidates))
	}
	if candidates[0].Title != "API rate limits doubled" {
		t.Fatalf("unexpected title: %s", candidates[0].Title)
	}
}
