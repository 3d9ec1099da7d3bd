package fetch

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"strings"
	"time"

	"UpdateSentinel/internal/domain"
)

// rssDocument covers both RSS 2.0 (channel/item) and Atom (entry)
// documents; whichever set of fields the feed fills in wins.
type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	Entries []atomEntry `xml:"entry"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
	Content     string `xml:"encoded"`
	Author      string `xml:"author"`
}

type atomEntry struct {
	Title     string `xml:"title"`
	Links     []atomLink `xml:"link"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
	Summary   string `xml:"summary"`
	Content   string `xml:"content"`
	Author    struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// entryPayload is the canonical serialization of a feed entry. Field
// order is fixed so the fingerprint is stable across parses.
type entryPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Author      string `json:"author"`
}

func (f *Fetcher) fetchRSS(ctx context.Context, url string) ([]domain.Candidate, error) {
	body, err := f.get(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, &ParseError{URL: url, Err: err}
	}

	now := time.Now()
	candidates := make([]domain.Candidate, 0, len(doc.Channel.Items)+len(doc.Entries))

	for _, item := range doc.Channel.Items {
		raw := canonicalEntry(item.Title, item.Description, item.Content, item.Author)
		candidates = append(candidates, domain.Candidate{
			Title:       strings.TrimSpace(item.Title),
			URL:         strings.TrimSpace(item.Link),
			PublishedAt: parseFeedTime(item.PubDate, now),
			Raw:         raw,
			Fingerprint: domain.Fingerprint(raw),
		})
	}

	for _, entry := range doc.Entries {
		raw := canonicalEntry(entry.Title, entry.Summary, entry.Content, entry.Author.Name)
		published := entry.Published
		if published == "" {
			published = entry.Updated
		}
		candidates = append(candidates, domain.Candidate{
			Title:       strings.TrimSpace(entry.Title),
			URL:         strings.TrimSpace(atomHref(entry.Links)),
			PublishedAt: parseFeedTime(published, now),
			Raw:         raw,
			Fingerprint: domain.Fingerprint(raw),
		})
	}

	return candidates, nil
}

func canonicalEntry(title, description, content, author string) string {
	raw, _ := json.Marshal(entryPayload{
		Title:       title,
		Description: description,
		Content:     content,
		Author:      author,
	})
	return string(raw)
}

func atomHref(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
	}
	if len(links) > 0 {
		return links[0].Href
	}
	return ""
}

var feedTimeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02",
}

func parseFeedTime(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return fallback
}
