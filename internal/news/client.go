// Package news fetches company headlines from the Google News RSS search
// feed. Only headline metadata is kept; articles are never scraped.
package news

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/smassist/backend/pkg/httputil"
	"github.com/smassist/backend/pkg/logger"
)

// Item is one headline from the feed.
type Item struct {
	Title       string `json:"title"`
	Publisher   string `json:"publisher,omitempty"`
	Link        string `json:"link,omitempty"`
	Published   string `json:"published,omitempty"`
	Description string `json:"description,omitempty"`
}

// Client searches Google News RSS.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new news client.
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    "https://news.google.com",
	}
}

// SearchURL builds the RSS search path for a query under base, locale-pinned
// to India/English to match the exchanges this system covers.
func SearchURL(base, query string) string {
	return fmt.Sprintf(
		"%s/rss/search?q=%s&hl=en-IN&gl=IN&ceid=IN:en",
		base, url.QueryEscape(query),
	)
}

// Search fetches headlines for a query, at most limit items.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Item, error) {
	searchURL := SearchURL(c.baseURL, query)

	resp, err := c.httpClient.Get(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("fetch news feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch news feed: unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read news feed: %w", err)
	}

	items, err := ParseFeed(body, limit)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"query": query,
		"items": len(items),
	}).Debug("Fetched news headlines")

	return items, nil
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
	Source      struct {
		Name string `xml:",chardata"`
	} `xml:"source"`
}

// ParseFeed decodes RSS XML into at most limit items. Descriptions arrive
// as HTML snippets and are reduced to their text.
func ParseFeed(data []byte, limit int) ([]Item, error) {
	var feed rssFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("parse news feed: %w", err)
	}

	entries := feed.Channel.Items
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, Item{
			Title:       strings.TrimSpace(e.Title),
			Publisher:   strings.TrimSpace(e.Source.Name),
			Link:        strings.TrimSpace(e.Link),
			Published:   formatPubDate(e.PubDate),
			Description: stripHTML(e.Description),
		})
	}
	return items, nil
}

// formatPubDate normalizes the feed's RFC1123 timestamps to a compact UTC
// form. Unparseable dates are dropped rather than passed through raw.
func formatPubDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format("2006-01-02 15:04 UTC")
		}
	}
	return ""
}

// stripHTML reduces an HTML snippet to its visible text.
func stripHTML(snippet string) string {
	snippet = strings.TrimSpace(snippet)
	if snippet == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(snippet)))
	if err != nil {
		return snippet
	}
	return strings.TrimSpace(doc.Text())
}
