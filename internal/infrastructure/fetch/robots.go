package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// RobotsAllowed checks the target host's robots.txt before a source is
// fetched. A missing or unreadable robots.txt allows the fetch; only an
// explicit disallow for our agent (or the wildcard agent) blocks it.
func (f *Fetcher) RobotsAllowed(ctx context.Context, rawURL string) bool {
	target, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", target.Scheme, target.Host)
	body, err := f.get(ctx, robotsURL, nil)
	if err != nil {
		return true
	}

	return robotsPermit(string(body), target.Path)
}

// robotsPermit evaluates disallow lines that apply to the sentinel's
// user agent against the request path.
func robotsPermit(robotsTxt, path string) bool {
	if path == "" {
		path = "/"
	}

	currentAgent := ""
	for _, line := range strings.Split(robotsTxt, "\n") {
		trimmed := strings.ToLower(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(trimmed, "user-agent:"):
			currentAgent = strings.TrimSpace(strings.TrimPrefix(trimmed, "user-agent:"))
		case strings.HasPrefix(trimmed, "disallow:"):
			if currentAgent != "*" && currentAgent != "updatesentinel" {
				continue
			}
			disallowed := strings.TrimSpace(strings.TrimPrefix(trimmed, "disallow:"))
			if disallowed == "/" || (disallowed != "" && strings.HasPrefix(path, disallowed)) {
				return false
			}
		}
	}
	return true
}
