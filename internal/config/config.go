// Package config loads and saves the feeds.toml subscription file.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/abelbrown/gazette/internal/feeds"
)

// DefaultHubHost is used when the config does not name a hub instance.
const DefaultHubHost = "https://rsshub.app"

// Config is the persistent subscription list. Field names keep the original
// file schema so existing feeds.toml files load unchanged.
type Config struct {
	Hub      HubConfig   `toml:"rsshub"`
	Feeds    []FeedEntry `toml:"rss"`
	HubFeeds []FeedEntry `toml:"rsshub_feeds"`
}

// HubConfig names the shared hub instance that hub routes resolve against.
type HubConfig struct {
	Host string `toml:"host"`
}

// FeedEntry is one subscription: a direct URL under [[rss]], or a hub route
// under [[rsshub_feeds]].
type FeedEntry struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// Default returns the starter configuration written on first run.
func Default() *Config {
	return &Config{
		Hub: HubConfig{Host: DefaultHubHost},
		Feeds: []FeedEntry{
			{Name: "Hacker News", URL: "https://news.ycombinator.com/rss"},
		},
		HubFeeds: []FeedEntry{
			{Name: "GitHub Trending", URL: "/github/trending/daily"},
		},
	}
}

// Load reads and parses a config file. Parse errors are fatal; a broken
// subscription list is not something to silently default around.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Hub.Host == "" {
		cfg.Hub.Host = DefaultHubHost
	}
	return &cfg, nil
}

// Save writes the config back to disk.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// LoadOrCreate loads the config, writing the default file first if none
// exists yet.
func LoadOrCreate(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Default().Save(path); err != nil {
			return nil, err
		}
	}
	return Load(path)
}

// AllFeeds flattens the configured subscriptions into resolvable feeds,
// direct URLs first.
func (c *Config) AllFeeds() []feeds.Feed {
	all := make([]feeds.Feed, 0, len(c.Feeds)+len(c.HubFeeds))
	for _, entry := range c.Feeds {
		all = append(all, feeds.Feed{Name: entry.Name, URL: entry.URL})
	}
	for _, entry := range c.HubFeeds {
		all = append(all, feeds.Feed{
			Name:    entry.Name,
			URL:     entry.URL,
			Hub:     true,
			HubHost: c.Hub.Host,
		})
	}
	return all
}
