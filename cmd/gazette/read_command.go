package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/gazette/internal/feeds"
	"github.com/abelbrown/gazette/internal/store"
	"github.com/abelbrown/gazette/internal/ui"
)

func newReadCommand(storeDir *string) *cobra.Command {
	var limit int
	var useTUI bool

	cmd := &cobra.Command{
		Use:   "read <url>",
		Short: "Fetch a direct RSS/Atom URL, archive it, and show its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feedURL := args[0]
			fmt.Printf("Fetching RSS from: %s\n", feedURL)

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
				feedName = feedURL
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

	cmd.Flags().IntVarP(&limit, "limit", "l", 5, "number of items to show")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "open in TUI mode")

	return cmd
}
