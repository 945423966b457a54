package feeds

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"
)

// requestsPerSecond bounds how fast we hit feed hosts; bursts cover the
// initial fan-out over all configured feeds.
const (
	requestsPerSecond = 4
	requestBurst      = 8
)

// Fetcher retrieves and parses feeds. Safe for concurrent use; the rate
// limiter is shared across all fetches so a refresh cycle stays polite.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewFetcher creates a Fetcher with the given HTTP timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}
}

// Fetch retrieves a feed URL and converts it to a Channel. Respects context
// cancellation both while waiting on the rate limiter and during the fetch.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (*Channel, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "gazette/0.1 (+https://github.com/abelbrown/gazette)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	channel := &Channel{
		Title:       parsed.Title,
		Description: parsed.Description,
		Items:       make([]Item, 0, len(parsed.Items)),
	}
	for _, entry := range parsed.Items {
		channel.Items = append(channel.Items, Item{
			Title:     entry.Title,
			Link:      entry.Link,
			Published: entry.Published,
			Content:   entry.Content,
			Summary:   entry.Description,
		})
	}
	return channel, nil
}

// FetchFeed resolves a configured feed and fetches it.
func (f *Fetcher) FetchFeed(ctx context.Context, feed Feed) (*Channel, error) {
	u, err := feed.Resolve()
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, u)
}
