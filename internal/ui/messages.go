// Package ui provides the Bubble Tea terminal reader for gazette.
package ui

import "github.com/abelbrown/gazette/internal/feeds"

// FetchComplete is sent when a feed fetch finishes, either from the
// coordinator's background refresh or from an in-UI load.
type FetchComplete struct {
	Feed    string
	Channel *feeds.Channel
	Err     error
}

// channelLoaded is sent when the channel for the selected feed is ready.
type channelLoaded struct {
	FeedIndex int
	Channel   *feeds.Channel
	Err       error
}

// articleLoaded is sent when an article body has been read back from the
// store (or found to still be processing).
type articleLoaded struct {
	FeedIndex int
	ItemIndex int
	Markdown  string
	Ingested  bool
}
