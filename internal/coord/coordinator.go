// Package coord provides background feed refresh coordination for gazette.
package coord

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/gazette/internal/feeds"
	"github.com/abelbrown/gazette/internal/store"
	"github.com/abelbrown/gazette/internal/ui"
	"github.com/abelbrown/gazette/internal/work"
)

// refreshInterval is the time between refresh cycles.
const refreshInterval = 5 * time.Minute

// fetchTimeout bounds each individual feed fetch.
const fetchTimeout = 30 * time.Second

// maxConcurrentFetches limits parallel fetch operations.
const maxConcurrentFetches = 5

// fetcher interface for dependency injection (testing).
type fetcher interface {
	FetchFeed(ctx context.Context, feed feeds.Feed) (*feeds.Channel, error)
}

// Coordinator periodically fetches every configured feed and hands the
// resulting channels to the store for ingestion via the work pool.
// Uses context cancellation as the ONLY stop mechanism.
type Coordinator struct {
	store   *store.Store
	fetcher fetcher
	pool    *work.Pool
	feedCfg []feeds.Feed // IMMUTABLE: set at construction, never modified
	wg      sync.WaitGroup
}

// New creates a Coordinator.
func New(s *store.Store, f *feeds.Fetcher, p *work.Pool, configured []feeds.Feed) *Coordinator {
	return NewWithFetcher(s, f, p, configured)
}

// NewWithFetcher allows injecting a custom fetcher (for testing).
func NewWithFetcher(s *store.Store, f fetcher, p *work.Pool, configured []feeds.Feed) *Coordinator {
	cfg := make([]feeds.Feed, len(configured))
	copy(cfg, configured)

	return &Coordinator{
		store:   s,
		fetcher: f,
		pool:    p,
		feedCfg: cfg,
	}
}

// Start begins background refreshing. Call with a cancellable context.
// Performs an initial refresh immediately, then every refreshInterval.
func (c *Coordinator) Start(ctx context.Context, program *tea.Program) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.refreshAll(ctx, program)

		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.refreshAll(ctx, program)
			}
		}
	}()
}

// Wait blocks until the background goroutine exits. Call after canceling
// the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// refreshAll fetches all feeds in parallel with a concurrency cap and
// submits ingestion of each fetched channel to the work pool.
func (c *Coordinator) refreshAll(ctx context.Context, program *tea.Program) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)

	for _, feed := range c.feedCfg {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			c.refreshFeed(ctx, feed, program)
			return nil // never fail the group - errors reported per-feed
		})
	}

	_ = g.Wait()
}

// refreshFeed fetches one feed with a timeout and queues its ingestion.
// Sends a ui.FetchComplete message when the fetch finishes (nil program is
// tolerated for testing).
func (c *Coordinator) refreshFeed(ctx context.Context, feed feeds.Feed, program *tea.Program) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	channel, err := c.fetcher.FetchFeed(fetchCtx, feed)
	if err == nil && channel != nil {
		feedURL, _ := feed.Resolve()
		items := channel.Items
		c.pool.Submit(work.TypeIngest, fmt.Sprintf("archive %s", feed.Name), func() (string, error) {
			if err := c.store.IngestFeed(ctx, feed.Name, feedURL, items); err != nil {
				return "", err
			}
			return fmt.Sprintf("%d items", len(items)), nil
		})
	}

	if program != nil {
		msg := ui.FetchComplete{Feed: feed.Name, Err: err}
		if channel != nil {
			msg.Channel = channel
		}
		program.Send(msg)
	}
}
