package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"UpdateSentinel/internal/domain"
)

// maxReleases caps API sources to the most recent releases.
const maxReleases = 10

var githubRepoExpr = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)`)

type githubRelease struct {
	Name        string    `json:"name"`
	TagName     string    `json:"tag_name"`
	Body        string    `json:"body"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	HTMLURL     string    `json:"html_url"`
	PublishedAt time.Time `json:"published_at"`
}

// releasePayload is the canonical serialization of a release used for
// fingerprinting.
type releasePayload struct {
	Name       string `json:"name"`
	TagName    string `json:"tag_name"`
	Body       string `json:"body"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

func (f *Fetcher) fetchGitHubReleases(ctx context.Context, sourceURL string) ([]domain.Candidate, error) {
	match := githubRepoExpr.FindStringSubmatch(sourceURL)
	if match == nil {
		return nil, &ParseError{URL: sourceURL, Err: fmt.Errorf("not a github repository URL")}
	}
	owner, repo := match[1], match[2]

	apiURL := fmt.Sprintf("%s/repos/%s/%s/releases", f.githubAPIBase, owner, repo)
	body, err := f.get(ctx, apiURL, map[string]string{
		"Accept": "application/vnd.github.v3+json",
	})
	if err != nil {
		return nil, err
	}

	var releases []githubRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, &ParseError{URL: apiURL, Err: err}
	}

	if len(releases) > maxReleases {
		releases = releases[:maxReleases]
	}

	candidates := make([]domain.Candidate, 0, len(releases))
	for _, release := range releases {
		raw, _ := json.Marshal(releasePayload{
			Name:       release.Name,
			TagName:    release.TagName,
			Body:       release.Body,
			Draft:      release.Draft,
			Prerelease: release.Prerelease,
		})

		title := release.Name
		if title == "" {
			title = release.TagName
		}
		if title == "" {
			title = "GitHub Release"
		}

		candidates = append(candidates, domain.Candidate{
			Title:       title,
			URL:         release.HTMLURL,
			PublishedAt: release.PublishedAt,
			Raw:         string(raw),
			Fingerprint: domain.Fingerprint(string(raw)),
		})
	}

	return candidates, nil
}
