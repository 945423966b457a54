package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Feed</title>
    <description>Articles about examples</description>
    <item>
      <title>First Post</title>
      <link>https://feed.example/1</link>
      <pubDate>Mon, 01 Jan 2024 00:00:00 GMT</pubDate>
      <description>short version</description>
    </item>
    <item>
      <title>Second Post</title>
      <link>https://feed.example/2</link>
      <pubDate>Tue, 02 Jan 2024 12:30:00 +0800</pubDate>
      <description>another one</description>
    </item>
  </channel>
</rss>`

func TestFetchParsesChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("request carried no User-Agent")
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	channel, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if channel.Title != "Example Feed" {
		t.Errorf("title = %q", channel.Title)
	}
	if channel.Description != "Articles about examples" {
		t.Errorf("description = %q", channel.Description)
	}
	if len(channel.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(channel.Items))
	}

	first := channel.Items[0]
	if first.Title != "First Post" || first.Link != "https://feed.example/1" {
		t.Errorf("first item = %+v", first)
	}
	// The textual date must survive untouched; normalization is not the
	// fetcher's job.
	if first.Published != "Mon, 01 Jan 2024 00:00:00 GMT" {
		t.Errorf("published = %q", first.Published)
	}
	if first.Summary != "short version" {
		t.Errorf("summary = %q", first.Summary)
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected error for HTTP 500")
	}
}

func TestFetchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a feed"))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected parse error for non-feed body")
	}
}

func TestFetchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(5 * time.Second)
	if _, err := f.Fetch(ctx, "https://feed.example/rss"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestFetchFeedResolvesHubRoute(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	feed := Feed{Name: "Routed", URL: "/github/trending/daily", Hub: true, HubHost: srv.URL}
	if _, err := f.FetchFeed(context.Background(), feed); err != nil {
		t.Fatalf("FetchFeed failed: %v", err)
	}
	if gotPath != "/github/trending/daily" {
		t.Errorf("request path = %q", gotPath)
	}
}
