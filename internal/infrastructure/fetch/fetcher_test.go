package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"UpdateSentinel/internal/domain"
)

func TestFingerprintDeterminism(t *testing.T) {
	t.Parallel()

	first := domain.Fingerprint("GPT-5 now supports projects")
	second := domain.Fingerprint("GPT-5 now supports projects")
	if first != second {
		t.Fatalf("same content produced different fingerprints: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected hex sha-256 length 64, got %d", len(first))
	}

	other := domain.Fingerprint("GPT-5 now supports Projects")
	if other == first {
		t.Fatalf("distinct content produced identical fingerprints")
	}
}

func TestFetchUnsupportedType(t *testing.T) {
	t.Parallel()

	f := New(nil, nil)
	_, err := f.Fetch(context.Background(), domain.Source{Type: "FTP", URL: "ftp://example.org"})

	var unsupported *ErrUnsupportedType
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestFetchErrorCarriesStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := New(server.Client(), nil)
	_, err := f.Fetch(context.Background(), domain.Source{Type: domain.SourceRSS, URL: server.URL + "/feed.xml"})

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", fetchErr.Status)
	}
}

func TestRobotsDisallow(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := New(server.Client(), nil)
	ctx := context.Background()

	if f.RobotsAllowed(ctx, server.URL+"/private/changelog") {
		t.Fatalf("expected /private to be disallowed")
	}
	if !f.RobotsAllowed(ctx, server.URL+"/public/changelog") {
		t.Fatalf("expected /public to be allowed")
	}
}

func TestRobotsMissingFileAllows(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := New(server.Client(), nil)
	if !f.RobotsAllowed(context.Background(), server.URL+"/changelog") {
		t.Fatalf("missing robots.txt should allow fetching")
	}
}

func TestRobotsPermitFullBlock(t *testing.T) {
	t.Parallel()

	robots := "User-agent: *\nDisallow: /\n"
	if robotsPermit(robots, "/anything") {
		t.Fatalf("full disallow should block every path")
	}

	scoped := "User-agent: otherbot\nDisallow: /\n"
	if !robotsPermit(scoped, "/anything") {
		t.Fatalf("disallow scoped to another agent should not block us")
	}
}
