package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"UpdateSentinel/internal/domain"
	"UpdateSentinel/internal/ports"
)

const userAgent = "UpdateSentinel/1.0"

// FetchError reports a transport-level failure for a source URL.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports malformed upstream content (RSS/HTML/JSON).
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.URL, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// ErrUnsupportedType marks a source with an unknown fetch strategy.
type ErrUnsupportedType struct {
	Type string
}

func (e *ErrUnsupportedType) Error() string {
	return fmt.Sprintf("unsupported source type: %s", e.Type)
}

// Fetcher normalizes RSS, HTML, and GitHub-release sources into
// candidate change items with content fingerprints.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger

	// githubAPIBase is overridable for tests.
	githubAPIBase string
}

var _ ports.SourceFetcher = (*Fetcher)(nil)

// New wires an HTTP client; a nil client gets a 20s timeout default.
func New(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:        client,
		logger:        logger,
		githubAPIBase: "https://api.github.com",
	}
}

// Fetch dispatches on the source type. "GITHUB" is accepted as an alias
// for API sources.
func (f *Fetcher) Fetch(ctx context.Context, source domain.Source) ([]domain.Candidate, error) {
	switch strings.ToUpper(string(source.Type)) {
	case "RSS":
		return f.fetchRSS(ctx, source.URL)
	case "HTML":
		return f.fetchHTML(ctx, source.URL, source.CSSSelector)
	case "API", "GITHUB":
		return f.fetchGitHubReleases(ctx, source.URL)
	default:
		return nil, &ErrUnsupportedType{Type: string(source.Type)}
	}
}

// get performs a GET with the sentinel User-Agent and returns the body.
// Any non-2xx status is a FetchError carrying the status code.
func (f *Fetcher) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return body, nil
}
