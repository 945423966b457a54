// Package server exposes the web reader: an embedded single-page UI, a JSON
// API over the configured feeds, and read-only serving of mirrored images.
package server

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/abelbrown/gazette/internal/feeds"
	"github.com/abelbrown/gazette/internal/logging"
	"github.com/abelbrown/gazette/internal/store"
	"github.com/abelbrown/gazette/internal/work"
)

//go:embed index.html
var indexHTML string

// stillProcessing is returned for items whose background ingestion has not
// finished yet. The UI shows it instead of an error.
const stillProcessing = "<em>Content is still processing.</em>"

// feedInfo describes one configured feed to the UI.
type feedInfo struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Hub  bool   `json:"is_rsshub"`
}

// itemMeta is the listing entry for one feed item.
type itemMeta struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Link    string `json:"link,omitempty"`
	PubDate string `json:"pub_date,omitempty"`
}

// feedResponse is the payload for one fetched feed.
type feedResponse struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Items       []itemMeta `json:"items"`
}

// itemContent is the payload for one article.
type itemContent struct {
	Title       string `json:"title"`
	Link        string `json:"link,omitempty"`
	PubDate     string `json:"pub_date,omitempty"`
	ContentHTML string `json:"content_html"`
}

// Server serves the web reader. Channels are cached per feed after the
// first fetch; ingestion runs on the work pool so requests return fast.
type Server struct {
	store   *store.Store
	fetcher *feeds.Fetcher
	pool    *work.Pool
	feeds   []feeds.Feed

	cacheMu sync.Mutex
	cache   []*feeds.Channel // index-aligned with feeds
}

// New creates a Server over the given store and configured feeds.
func New(s *store.Store, f *feeds.Fetcher, p *work.Pool, configured []feeds.Feed) *Server {
	return &Server{
		store:   s,
		fetcher: f,
		pool:    p,
		feeds:   configured,
		cache:   make([]*feeds.Channel, len(configured)),
	}
}

// Router builds the gin handler.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, indexHTML)
	})
	r.GET("/api/feeds", s.listFeeds)
	r.GET("/api/feeds/:index", s.getFeed)
	r.GET("/api/feeds/:index/items/:item", s.getItem)
	r.Static("/images", s.store.ImageDir())

	return r
}

// Run serves until the listener fails.
func (s *Server) Run(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	logging.Info("web server listening", "addr", addr)
	fmt.Printf("Server running at http://%s\n", addr)
	return s.Router().Run(addr)
}

func (s *Server) listFeeds(c *gin.Context) {
	infos := make([]feedInfo, 0, len(s.feeds))
	for _, f := range s.feeds {
		infos = append(infos, feedInfo{Name: f.Name, URL: f.URL, Hub: f.Hub})
	}
	c.JSON(http.StatusOK, infos)
}

func (s *Server) getFeed(c *gin.Context) {
	index, feed, ok := s.feedAt(c)
	if !ok {
		return
	}

	channel, err := s.channelFor(c.Request.Context(), index, feed)
	if err != nil {
		c.String(http.StatusBadGateway, err.Error())
		return
	}

	// Archive in the background; the listing response never waits on the
	// pipeline.
	feedURL, _ := feed.Resolve()
	items := channel.Items
	s.pool.Submit(work.TypeIngest, fmt.Sprintf("archive %s", feed.Name), func() (string, error) {
		if err := s.store.IngestFeed(context.Background(), feed.Name, feedURL, items); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d items", len(items)), nil
	})

	resp := feedResponse{
		Title:       channel.Title,
		Description: channel.Description,
		Items:       make([]itemMeta, 0, len(channel.Items)),
	}
	for i, item := range channel.Items {
		resp.Items = append(resp.Items, itemMeta{
			ID:      i,
			Title:   item.Title,
			Link:    item.Link,
			PubDate: item.Published,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getItem(c *gin.Context) {
	index, feed, ok := s.feedAt(c)
	if !ok {
		return
	}

	itemIndex, err := strconv.Atoi(c.Param("item"))
	if err != nil {
		c.String(http.StatusNotFound, "Item not found")
		return
	}

	channel, err := s.channelFor(c.Request.Context(), index, feed)
	if err != nil {
		c.String(http.StatusBadGateway, err.Error())
		return
	}
	if itemIndex < 0 || itemIndex >= len(channel.Items) {
		c.String(http.StatusNotFound, "Item not found")
		return
	}
	item := channel.Items[itemIndex]

	feedURL, _ := feed.Resolve()
	content := itemContent{
		Title:   item.Title,
		Link:    item.Link,
		PubDate: item.Published,
	}
	if content.Title == "" {
		content.Title = "No Title"
	}

	markdown, ingested := s.store.ReadArtifact(feed.Name, feedURL, item)
	switch {
	case !ingested:
		content.ContentHTML = stillProcessing
	case len(markdown) == 0:
		content.ContentHTML = "<em>No content.</em>"
	default:
		content.ContentHTML = store.ToHTML(markdown)
	}
	c.JSON(http.StatusOK, content)
}

// feedAt resolves the :index parameter, writing a 404 on failure.
func (s *Server) feedAt(c *gin.Context) (int, feeds.Feed, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 || index >= len(s.feeds) {
		c.String(http.StatusNotFound, "Feed not found")
		return 0, feeds.Feed{}, false
	}
	return index, s.feeds[index], true
}

// channelFor returns the cached channel for a feed, fetching on first use.
func (s *Server) channelFor(ctx context.Context, index int, feed feeds.Feed) (*feeds.Channel, error) {
	s.cacheMu.Lock()
	cached := s.cache[index]
	s.cacheMu.Unlock()
	if cached != nil {
		return cached, nil
	}

	channel, err := s.fetcher.FetchFeed(ctx, feed)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feed.Name, err)
	}

	s.cacheMu.Lock()
	s.cache[index] = channel
	s.cacheMu.Unlock()
	return channel, nil
}
