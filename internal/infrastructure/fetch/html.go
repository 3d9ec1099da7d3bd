package fetch

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"UpdateSentinel/internal/domain"
)

// changelogSelector covers common changelog/release markup patterns and
// is tried before the heading fallback on selector-less sources.
const changelogSelector = `article, .changelog-item, .release-item, .update-item, [class*="change"], [class*="release"], [class*="update"]`

const headingSelector = "h1, h2, h3, h4, h5, h6"

// maxFallbackHeadings caps heuristic extraction to avoid flooding the
// pipeline from generic pages.
const maxFallbackHeadings = 10

var (
	updateKeywordExpr = regexp.MustCompile(`(?i)update|change|release|version|fix|feature`)
	inlineDateExpr    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}`)
)

func (f *Fetcher) fetchHTML(ctx context.Context, url, cssSelector string) ([]domain.Candidate, error) {
	body, err := f.get(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, &ParseError{URL: url, Err: err}
	}

	var selection *goquery.Selection
	if cssSelector != "" {
		selection = doc.Find(cssSelector)
	} else {
		selection = doc.Find(changelogSelector)
	}

	if selection.Length() == 0 {
		selection = doc.Find(headingSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return updateKeywordExpr.MatchString(s.Text())
		})
		if selection.Length() > maxFallbackHeadings {
			selection = selection.Slice(0, maxFallbackHeadings)
		}
	}

	now := time.Now()
	candidates := make([]domain.Candidate, 0, selection.Length())
	selection.Each(func(i int, el *goquery.Selection) {
		raw, err := goquery.OuterHtml(el)
		if err != nil || raw == "" {
			raw = el.Text()
		}

		candidates = append(candidates, domain.Candidate{
			Title:       elementTitle(el, i),
			URL:         url,
			PublishedAt: elementDate(el, now),
			Raw:         raw,
			Fingerprint: domain.Fingerprint(raw),
		})
	})

	return candidates, nil
}

// elementTitle prefers the first heading inside the element, then the
// element's own text truncated, then a positional placeholder.
func elementTitle(el *goquery.Selection, index int) string {
	if heading := strings.TrimSpace(el.Find(headingSelector).First().Text()); heading != "" {
		return heading
	}
	if text := strings.TrimSpace(el.Text()); text != "" {
		runes := []rune(text)
		if len(runes) > 100 {
			return string(runes[:100])
		}
		return text
	}
	return fmt.Sprintf("Update %d", index+1)
}

// elementDate walks the best-effort chain: <time datetime> attribute,
// a date-classed child's text, an inline date pattern, current time.
func elementDate(el *goquery.Selection, fallback time.Time) time.Time {
	if datetime, ok := el.Find("time").First().Attr("datetime"); ok {
		if t := parseLooseDate(datetime); !t.IsZero() {
			return t
		}
	}
	if text := strings.TrimSpace(el.Find(`[class*="date"]`).First().Text()); text != "" {
		if t := parseLooseDate(text); !t.IsZero() {
			return t
		}
	}
	if match := inlineDateExpr.FindString(el.Text()); match != "" {
		if t := parseLooseDate(match); !t.IsZero() {
			return t
		}
	}
	return fallback
}

var looseDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

func parseLooseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range looseDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if match := inlineDateExpr.FindString(value); match != "" && match != value {
		return parseLooseDate(match)
	}
	return time.Time{}
}
