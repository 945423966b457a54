package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/gazette/internal/config"
	"github.com/abelbrown/gazette/internal/feeds"
	"github.com/abelbrown/gazette/internal/store"
	"github.com/abelbrown/gazette/internal/ui"
)

func newHubCommand(storeDir *string) *cobra.Command {
	var host string
	var limit int
	var useTUI bool

	cmd := &cobra.Command{
		Use:   "hub <route>",
		Short: "Fetch an RSSHub route (e.g. /github/trending/daily)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			route := args[0]
			feedURL, err := feeds.HubURL(host, route)
			if err != nil {
				return err
			}
			fmt.Printf("Fetching RSSHub route: %s (full URL: %s)\n", route, feedURL)

			st, err := store.Open(*storeDir)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			fetcher := feeds.NewFetcher(feedTimeoutSeconds * time.Second)
			channel, err := fetcher.Fetch(ctx, feedURL)
			if err != nil {
				return err
			}

			feedName := channel.Title
			if feedName == "" {
				feedName = route
			}
			if err := st.IngestFeed(ctx, feedName, feedURL, channel.Items); err != nil {
				return err
			}

			if useTUI {
				feed := feeds.Feed{Name: feedName, URL: feedURL}
				return runTUI(ui.NewWithChannel(st, feed, channel))
			}
			printChannel(channel, limit)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", config.DefaultHubHost, "RSSHub instance URL")
	cmd.Flags().IntVarP(&limit, "limit", "l", 5, "number of items to show")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "open in TUI mode")

	return cmd
}
