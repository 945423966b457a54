package coord

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelbrown/gazette/internal/feeds"
	"github.com/abelbrown/gazette/internal/store"
	"github.com/abelbrown/gazette/internal/work"
)

// stubFetcher returns a canned channel per feed URL without touching the
// network.
type stubFetcher struct {
	calls    atomic.Int64
	channels map[string]*feeds.Channel
	err      error
}

func (f *stubFetcher) FetchFeed(ctx context.Context, feed feeds.Feed) (*feeds.Channel, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.channels[feed.URL], nil
}

func newTestCoordinator(t *testing.T, f fetcher, configured []feeds.Feed) (*Coordinator, *store.Store, *work.Pool) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	p := work.NewPool(2)
	p.Start()
	t.Cleanup(p.Stop)
	return NewWithFetcher(s, f, p, configured), s, p
}

func TestRefreshAllIngestsFetchedFeeds(t *testing.T) {
	item := feeds.Item{
		Title:     "Hello",
		Link:      "https://feed.example/1",
		Published: "Mon, 01 Jan 2024 00:00:00 GMT",
		Content:   "<p>body</p>",
	}
	f := &stubFetcher{channels: map[string]*feeds.Channel{
		"https://feed.example/rss": {Title: "Example", Items: []feeds.Item{item}},
	}}
	configured := []feeds.Feed{{Name: "Example", URL: "https://feed.example/rss"}}
	c, s, _ := newTestCoordinator(t, f, configured)

	c.refreshAll(context.Background(), nil)

	// Ingestion runs on the pool; poll the store until the artifact lands.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := s.ReadArtifact("Example", "https://feed.example/rss", item); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("artifact never appeared in the store")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := f.calls.Load(); got != 1 {
		t.Errorf("fetcher called %d times, want 1", got)
	}
}

func TestRefreshAllToleratesFetchErrors(t *testing.T) {
	f := &stubFetcher{err: errors.New("network down")}
	configured := []feeds.Feed{
		{Name: "A", URL: "https://a.example/rss"},
		{Name: "B", URL: "https://b.example/rss"},
	}
	c, s, _ := newTestCoordinator(t, f, configured)

	// Must not panic and must attempt every feed despite failures.
	c.refreshAll(context.Background(), nil)

	if got := f.calls.Load(); got != 2 {
		t.Errorf("fetcher called %d times, want 2", got)
	}
	records, err := s.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("failed fetches must not produce index rows, got %d", len(records))
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	f := &stubFetcher{channels: map[string]*feeds.Channel{}}
	c, _, _ := newTestCoordinator(t, f, []feeds.Feed{{Name: "A", URL: "https://a.example/rss"}})

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx, nil)

	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop after cancel")
	}
}
