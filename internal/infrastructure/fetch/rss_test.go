package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"UpdateSentinel/internal/domain"
)

const sampleRSS = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Acme Changelog</title>
    <item>
      <title>Projects go GA</title>
      <link>https://acme.example/changelog/projects-ga</link>
      <pubDate>Mon, 10 Aug 2026 09:00:00 +0000</pubDate>
      <description>Projects are now generally available.</description>
      <author>acme</author>
    </item>
    <item>
      <title>Free tier limits reduced</title>
      <link>https://acme.example/changelog/free-tier</link>
      <pubDate>Tue, 11 Aug 2026 09:00:00 +0000</pubDate>
      <description>Daily message cap lowered.</description>
    </item>
  </channel>
</rss>`

const sampleAtom = `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Acme Releases</title>
  <entry>
    <title>v2.4.0</title>
    <link rel="alternate" href="https://acme.example/releases/v2.4.0"/>
    <published>2026-08-12T10:00:00Z</published>
    <summary>Connector API v2 deprecated.</summary>
    <author><name>release-bot</name></author>
  </entry>
</feed>`

func serveFixture(t *testing.T, payload string) (*httptest.Server, *Fetcher) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)
	return server, New(server.Client(), nil)
}

func TestFetchRSS(t *testing.T) {
	t.Parallel()

	server, f := serveFixture(t, sampleRSS)
	candidates, err := f.Fetch(context.Background(), domain.Source{Type: domain.SourceRSS, URL: server.URL + "/feed.xml"})
	if err != nil {
		t.Fatalf("fetch rss: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	first := candidates[0]
	if first.Title != "Projects go GA" {
		t.Fatalf("unexpected title: %s", first.Title)
	}
	if first.URL != "https://acme.example/changelog/projects-ga" {
		t.Fatalf("unexpected url: %s", first.URL)
	}
	want := time.Date(2026, time.August, 10, 9, 0, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Fatalf("unexpected published time: %v", first.PublishedAt)
	}
	if first.Fingerprint != domain.Fingerprint(first.Raw) {
		t.Fatalf("fingerprint does not match raw content")
	}
}

func TestFetchRSSStableFingerprintAcrossParses(t *testing.T) {
	t.Parallel()

	server, f := serveFixture(t, sampleRSS)
	source := domain.Source{Type: domain.SourceRSS, URL: server.URL + "/feed.xml"}

	ctx := context.Background()
	first, err := f.Fetch(ctx, source)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := f.Fetch(ctx, source)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if first[0].Fingerprint != second[0].Fingerprint {
		t.Fatalf("fingerprint unstable across parses of the same entry")
	}
}

func TestFetchAtom(t *testing.T) {
	t.Parallel()

	server, f := serveFixture(t, sampleAtom)
	candidates, err := f.Fetch(context.Background(), domain.Source{Type: domain.SourceRSS, URL: server.URL + "/atom.xml"})
	if err != nil {
		t.Fatalf("fetch atom: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Title != "v2.4.0" {
		t.Fatalf("unexpected title: %s", candidates[0].Title)
	}
	if candidates[0].URL != "https://acme.example/releases/v2.4.0" {
		t.Fatalf("unexpected url: %s", candidates[0].URL)
	}
}

func TestFetchRSSMalformed(t *testing.T) {
	t.Parallel()

	server, f := serveFixture(t, "<rss><channel><item></rss>")
	_, err := f.Fetch(context.Background(), domain.Source{Type: domain.SourceRSS, URL: server.URL})
	if err == nil {
		t.Fatalf("expected parse error for malformed feed")
	}
}
