// Package store implements gazette's content-addressed article archive.
//
// Articles are identified by a digest over (feed name, feed URL, title,
// link, normalized timestamp) and stored as markdown files named by that
// digest. Referenced images are mirrored into a local cache keyed by a
// digest of their source URL, and every successful ingest appends one row
// to an append-only CSV index. All mutation is append-or-create-once, which
// is what makes concurrent ingestion safe without a locking protocol around
// the whole store.
package store

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/abelbrown/gazette/internal/feeds"
	"github.com/abelbrown/gazette/internal/logging"
)

// placeholderTitle stands in for items that arrive without a title. It is
// part of the identity computation, so it must never change.
const placeholderTitle = "No Title"

// fetchTimeout bounds each image download.
const fetchTimeout = 30 * time.Second

// normalizedTimeLayout renders normalized timestamps with an explicit
// numeric offset, so UTC appears as +00:00.
const normalizedTimeLayout = "2006-01-02T15:04:05-07:00"

// pubDateLayouts are the two accepted publish-date formats: the fixed-offset
// RFC 2822 style feeds usually emit (with either a numeric offset or a zone
// name) and strict RFC 3339.
var pubDateLayouts = []string{time.RFC1123Z, time.RFC1123, time.RFC3339}

// DefaultRoot is the store directory used when no override is given.
func DefaultRoot() string {
	return filepath.Join("data", "articles")
}

// Store is the article archive rooted at a single local directory. NOT an
// interface - concrete type, constructed once and shared by reference among
// concurrent ingesters.
// Thread-safety: artifact and asset writes are create-once and convergent
// under races; index appends are serialized via indexMu + indexLock.
type Store struct {
	root      string
	imageDir  string
	indexPath string

	client *http.Client

	indexMu   sync.Mutex
	indexLock *flock.Flock
}

// Open initializes the store directory tree and the index log, creating
// whatever is missing. Failure here is fatal to the caller: nothing can be
// ingested without a writable store.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	imageDir := filepath.Join(root, "images")
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}

	indexPath := filepath.Join(root, "index.csv")
	s := &Store{
		root:      root,
		imageDir:  imageDir,
		indexPath: indexPath,
		client:    &http.Client{Timeout: fetchTimeout},
		indexLock: flock.New(indexPath + ".lock"),
	}

	if err := s.ensureIndexHeader(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// ImageDir returns the directory holding mirrored images. The presentation
// layer serves it read-only under the /images prefix.
func (s *Store) ImageDir() string {
	return s.imageDir
}

// Ingest archives one feed item and returns its artifact text.
//
// If the item's identity has been ingested before, the existing artifact is
// returned verbatim: no network activity, no conversion, no index row. For
// new identities the HTML body is converted to markdown, referenced images
// are localized (failures leave the original reference in place), the
// artifact is written, and one row is appended to the index.
func (s *Store) Ingest(ctx context.Context, feedName, feedURL string, item feeds.Item) (string, error) {
	title := item.Title
	if title == "" {
		title = placeholderTitle
	}

	normalized, ok := NormalizeTimestamp(item.Published)
	timeForCSV := normalized
	if !ok {
		timeForCSV = time.Now().UTC().Format(normalizedTimeLayout)
	}

	filename := ArticleFilename(feedName, feedURL, title, item.Link, normalized)
	artifactPath := filepath.Join(s.root, filename)

	if existing, err := os.ReadFile(artifactPath); err == nil {
		return string(existing), nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read existing artifact: %w", err)
	}

	markdown := FromHTML(itemBody(item))
	markdown = s.localizeImages(ctx, markdown)

	// One complete buffer, never a partial stream: an interrupted write can
	// at worst leave a file the next ingest of this identity overreads, not
	// a half-written artifact masquerading as done.
	if err := os.WriteFile(artifactPath, []byte(markdown), 0644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}

	if err := s.appendIndex(IndexRecord{
		Time:     timeForCSV,
		Title:    title,
		FeedName: feedName,
		Path:     artifactPath,
	}); err != nil {
		return "", err
	}

	logging.Debug("ingested article", "feed", feedName, "title", title, "file", filename)
	return markdown, nil
}

// IngestFeed ingests every item of a feed in order. The first fatal error
// stops the walk; per-image failures inside items do not.
func (s *Store) IngestFeed(ctx context.Context, feedName, feedURL string, items []feeds.Item) error {
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.Ingest(ctx, feedName, feedURL, item); err != nil {
			return fmt.Errorf("ingest %q from %s: %w", item.Title, feedName, err)
		}
	}
	return nil
}

// ReadArtifact returns the stored artifact for an item, recomputing the same
// identity used at write time. The second return is false when the item has
// not been ingested yet; that is a normal state, not an error. Never touches
// the network and never writes.
func (s *Store) ReadArtifact(feedName, feedURL string, item feeds.Item) (string, bool) {
	title := item.Title
	if title == "" {
		title = placeholderTitle
	}
	normalized, _ := NormalizeTimestamp(item.Published)

	filename := ArticleFilename(feedName, feedURL, title, item.Link, normalized)
	data, err := os.ReadFile(filepath.Join(s.root, filename))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// NormalizeTimestamp parses a feed publish date in either accepted format
// and renders it in UTC. Returns false for absent or unparseable input, in
// which case the empty string participates in identity computation.
func NormalizeTimestamp(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(normalizedTimeLayout), true
		}
	}
	return "", false
}

// itemBody picks the HTML payload to archive: full content when the feed
// provides it, summary otherwise.
func itemBody(item feeds.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return item.Summary
}
