package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smassist/backend/pkg/config"
	"github.com/smassist/backend/pkg/httputil"
	"github.com/smassist/backend/pkg/logger"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>"Reliance Industries" - Google News</title>
<item>
<title>Reliance posts record quarterly profit</title>
<link>https://news.example/reliance-profit</link>
<pubDate>Mon, 18 Aug 2025 09:30:00 GMT</pubDate>
<description>&lt;a href="https://news.example/reliance-profit"&gt;Reliance posts record quarterly profit&lt;/a&gt;&amp;nbsp;&amp;nbsp;&lt;font color="#6f6f6f"&gt;Business Daily&lt;/font&gt;</description>
<source url="https://business.example">Business Daily</source>
</item>
<item>
<title>Analysts weigh in on retail expansion</title>
<link>https://news.example/retail</link>
<pubDate>Sun, 17 Aug 2025 12:00:00 +0530</pubDate>
<description>Plain text description</description>
<source url="https://wire.example">Market Wire</source>
</item>
<item>
<title>Third headline past the limit</title>
<link>https://news.example/third</link>
<pubDate>not a date</pubDate>
<description></description>
</item>
</channel>
</rss>`

func TestSearchURL(t *testing.T) {
	got := SearchURL("https://news.google.com", `"Reliance Industries" stock`)
	if !strings.Contains(got, "q=%22Reliance+Industries%22+stock") {
		t.Errorf("query not escaped: %s", got)
	}
	if !strings.Contains(got, "ceid=IN%3Aen") && !strings.Contains(got, "ceid=IN:en") {
		t.Errorf("locale missing: %s", got)
	}
}

func TestParseFeed(t *testing.T) {
	items, err := ParseFeed([]byte(sampleFeed), 0)
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}

	first := items[0]
	if first.Title != "Reliance posts record quarterly profit" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.Publisher != "Business Daily" {
		t.Errorf("Publisher = %q, want Business Daily", first.Publisher)
	}
	if first.Published != "2025-08-18 09:30 UTC" {
		t.Errorf("Published = %q, want 2025-08-18 09:30 UTC", first.Published)
	}
	if strings.Contains(first.Description, "<") || strings.Contains(first.Description, "href") {
		t.Errorf("Description still has markup: %q", first.Description)
	}
	if !strings.Contains(first.Description, "Reliance posts record quarterly profit") {
		t.Errorf("Description lost its text: %q", first.Description)
	}

	// Offset timestamps normalize to UTC.
	if items[1].Published != "2025-08-17 06:30 UTC" {
		t.Errorf("Published = %q, want 2025-08-17 06:30 UTC", items[1].Published)
	}
	// Unparseable dates are dropped.
	if items[2].Published != "" {
		t.Errorf("Published = %q, want empty for junk date", items[2].Published)
	}
}

func TestParseFeedLimit(t *testing.T) {
	items, err := ParseFeed([]byte(sampleFeed), 2)
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}
	if len(items) != 2 {
		t.Errorf("got %d items, want 2", len(items))
	}
}

func TestParseFeedRejectsJunk(t *testing.T) {
	if _, err := ParseFeed([]byte("<html>not rss"), 0); err == nil {
		t.Error("expected parse error for non-RSS payload")
	}
}

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	cfg := &config.Config{LogLevel: "error", LogFormat: "json"}
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.HTTP.RequestsPerSec = 100
	log := logger.New(cfg)

	client := NewClient(httputil.New(cfg, log), log)
	client.baseURL = server.URL

	items, err := client.Search(context.Background(), "Reliance Industries", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Publisher != "Business Daily" {
		t.Errorf("Publisher = %q", items[0].Publisher)
	}
}
