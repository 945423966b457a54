package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/gazette/internal/feeds"
	"github.com/abelbrown/gazette/internal/store"
)

// screen identifies which pane has focus.
type screen int

const (
	screenFeeds screen = iota
	screenItems
	screenArticle
)

// loadTimeout bounds in-UI feed fetches.
const loadTimeout = 30 * time.Second

// App is the terminal reader model. It either browses the configured feed
// list or, in single-feed mode, starts directly on an already-fetched
// channel.
type App struct {
	store   *store.Store
	fetcher *feeds.Fetcher

	feedList []feeds.Feed
	channels map[int]*feeds.Channel

	screen      screen
	feedCursor  int
	itemCursor  int
	loading     bool
	status      string
	spinner     spinner.Model
	viewport    viewport.Model
	width       int
	height      int
	singleFeed  bool
	ready       bool
	currentItem feeds.Item
}

// NewWithFeeds creates an App browsing the configured feed list.
func NewWithFeeds(s *store.Store, f *feeds.Fetcher, configured []feeds.Feed) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &App{
		store:    s,
		fetcher:  f,
		feedList: configured,
		channels: make(map[int]*feeds.Channel),
		spinner:  sp,
	}
}

// NewWithChannel creates an App that starts directly on one fetched channel
// (the `read --tui` path). The feed name and URL must match what the store
// was given at ingest time, or read-back misses.
func NewWithChannel(s *store.Store, feed feeds.Feed, channel *feeds.Channel) *App {
	app := NewWithFeeds(s, nil, []feeds.Feed{feed})
	app.channels[0] = channel
	app.screen = screenItems
	app.singleFeed = true
	return app
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport = viewport.New(msg.Width, msg.Height-4)
		a.ready = true
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case channelLoaded:
		a.loading = false
		if msg.Err != nil {
			a.status = fmt.Sprintf("fetch failed: %v", msg.Err)
			return a, nil
		}
		a.channels[msg.FeedIndex] = msg.Channel
		a.screen = screenItems
		a.itemCursor = 0
		a.status = ""
		return a, nil

	case articleLoaded:
		a.loading = false
		if !msg.Ingested {
			a.setArticle("Content is still processing. Press enter to retry.")
			return a, nil
		}
		body := msg.Markdown
		if strings.TrimSpace(body) == "" {
			body = "No content."
		}
		a.setArticle(body)
		return a, nil

	case FetchComplete:
		if msg.Err != nil {
			a.status = fmt.Sprintf("%s: fetch failed", msg.Feed)
		} else {
			a.status = fmt.Sprintf("%s: refreshed", msg.Feed)
		}
		return a, nil
	}

	if a.screen == screenArticle {
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return a, tea.Quit

	case "up", "k":
		a.moveCursor(-1)
	case "down", "j":
		a.moveCursor(1)

	case "enter":
		return a.open()

	case "esc", "backspace":
		switch a.screen {
		case screenArticle:
			a.screen = screenItems
		case screenItems:
			if !a.singleFeed {
				a.screen = screenFeeds
			}
		}
	}

	if a.screen == screenArticle {
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) moveCursor(delta int) {
	switch a.screen {
	case screenFeeds:
		a.feedCursor = clamp(a.feedCursor+delta, 0, len(a.feedList)-1)
	case screenItems:
		if ch := a.channels[a.feedCursor]; ch != nil {
			a.itemCursor = clamp(a.itemCursor+delta, 0, len(ch.Items)-1)
		}
	}
}

func (a *App) open() (tea.Model, tea.Cmd) {
	switch a.screen {
	case screenFeeds:
		if len(a.feedList) == 0 {
			return a, nil
		}
		if a.channels[a.feedCursor] != nil {
			a.screen = screenItems
			a.itemCursor = 0
			return a, nil
		}
		a.loading = true
		a.status = "fetching…"
		return a, tea.Batch(a.spinner.Tick, a.loadChannelCmd(a.feedCursor))

	case screenItems:
		ch := a.channels[a.feedCursor]
		if ch == nil || len(ch.Items) == 0 {
			return a, nil
		}
		item := ch.Items[a.itemCursor]
		a.currentItem = item
		a.screen = screenArticle
		a.loading = true
		return a, tea.Batch(a.spinner.Tick, a.loadArticleCmd(a.feedCursor, a.itemCursor, item))
	}
	return a, nil
}

// loadChannelCmd fetches the selected feed off the UI goroutine.
func (a *App) loadChannelCmd(index int) tea.Cmd {
	feed := a.feedList[index]
	return func() tea.Msg {
		if a.fetcher == nil {
			return channelLoaded{FeedIndex: index, Err: fmt.Errorf("no fetcher configured")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		channel, err := a.fetcher.FetchFeed(ctx, feed)
		return channelLoaded{FeedIndex: index, Channel: channel, Err: err}
	}
}

// loadArticleCmd reads the stored artifact back. Read-only: ingestion is the
// coordinator's job, the UI just observes whether it has happened yet.
func (a *App) loadArticleCmd(feedIndex, itemIndex int, item feeds.Item) tea.Cmd {
	feed := a.feedList[feedIndex]
	return func() tea.Msg {
		feedURL, err := feed.Resolve()
		if err != nil {
			return articleLoaded{FeedIndex: feedIndex, ItemIndex: itemIndex}
		}
		markdown, ok := a.store.ReadArtifact(feed.Name, feedURL, item)
		return articleLoaded{
			FeedIndex: feedIndex,
			ItemIndex: itemIndex,
			Markdown:  markdown,
			Ingested:  ok,
		}
	}
}

func (a *App) setArticle(body string) {
	header := titleStyle.Render(a.currentItem.Title)
	meta := ""
	if a.currentItem.Link != "" || a.currentItem.Published != "" {
		meta = metaStyle.Render(strings.TrimSpace(a.currentItem.Published+"  "+a.currentItem.Link)) + "\n"
	}
	a.viewport.SetContent(header + "\n" + meta + "\n" + body)
	a.viewport.GotoTop()
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "loading…"
	}

	var b strings.Builder
	switch a.screen {
	case screenFeeds:
		b.WriteString(titleStyle.Render("Feeds") + "\n\n")
		for i, f := range a.feedList {
			line := f.Name
			if f.Hub {
				line += dimStyle.Render(" (hub)")
			}
			if i == a.feedCursor {
				b.WriteString(selectedStyle.Render(line) + "\n")
			} else {
				b.WriteString(normalStyle.Render(line) + "\n")
			}
		}

	case screenItems:
		name := ""
		if len(a.feedList) > 0 {
			name = a.feedList[a.feedCursor].Name
		}
		b.WriteString(titleStyle.Render(name) + "\n\n")
		ch := a.channels[a.feedCursor]
		if ch == nil || len(ch.Items) == 0 {
			b.WriteString(dimStyle.Render("No items.") + "\n")
			break
		}
		for i, item := range ch.Items {
			title := item.Title
			if title == "" {
				title = "No Title"
			}
			if i == a.itemCursor {
				b.WriteString(selectedStyle.Render(title) + "\n")
			} else {
				b.WriteString(normalStyle.Render(title) + "\n")
			}
		}

	case screenArticle:
		return a.viewport.View() + "\n" + a.statusLine()
	}

	b.WriteString("\n" + a.statusLine())
	return b.String()
}

func (a *App) statusLine() string {
	if a.loading {
		return statusStyle.Render(a.spinner.View() + " working…")
	}
	help := "enter: open  esc: back  q: quit"
	if a.status != "" {
		return statusStyle.Render(a.status + "  ·  " + help)
	}
	return statusStyle.Render(help)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
