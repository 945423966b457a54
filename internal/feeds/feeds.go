// Package feeds defines the feed model and fetching for gazette.
//
// A configured feed is either a direct URL or a route resolved against a
// shared hub host; once resolved the rest of the system treats both
// uniformly.
package feeds

import (
	"fmt"
	"net/url"
	"strings"
)

// Item is one raw feed entry as handed to the store. Published carries the
// feed's textual date untouched; the store owns its interpretation.
type Item struct {
	Title     string
	Link      string
	Published string
	Content   string
	Summary   string
}

// Channel is a fetched feed: its own metadata plus items in feed order.
type Channel struct {
	Title       string
	Description string
	Items       []Item
}

// Feed is one configured subscription.
type Feed struct {
	Name    string
	URL     string // direct feed URL, or a hub route like /github/trending/daily
	Hub     bool
	HubHost string // only set when Hub is true
}

// Resolve returns the concrete URL to fetch. Hub routes are joined against
// the hub host, tolerating a missing leading slash; direct feeds pass
// through unchanged.
func (f Feed) Resolve() (string, error) {
	if !f.Hub {
		return f.URL, nil
	}
	if f.HubHost == "" {
		return "", fmt.Errorf("feed %q: hub host missing", f.Name)
	}
	return HubURL(f.HubHost, f.URL)
}

// HubURL joins a hub route against a hub host.
func HubURL(host, route string) (string, error) {
	base, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("invalid hub host %q: %w", host, err)
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	ref, err := url.Parse(route)
	if err != nil {
		return "", fmt.Errorf("invalid hub route %q: %w", route, err)
	}
	return base.ResolveReference(ref).String(), nil
}
