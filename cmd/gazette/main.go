// Command gazette is an RSS reader that archives everything it shows.
//
// Usage:
//
//	gazette read <url>       Fetch a direct feed URL, archive and print it
//	gazette hub <route>      Fetch an RSSHub route the same way
//	gazette ui               Terminal reader over the configured feeds
//	gazette serve            Web reader over the configured feeds
//	gazette history          Print the archive's ingestion log
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/gazette/internal/logging"
	"github.com/abelbrown/gazette/internal/store"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var storeFlag string

	rootCmd := &cobra.Command{
		Use:           "gazette",
		Short:         "RSS reader with a content-addressed local archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", store.DefaultRoot(), "article store directory")

	rootCmd.AddCommand(newReadCommand(&storeFlag))
	rootCmd.AddCommand(newHubCommand(&storeFlag))
	rootCmd.AddCommand(newUICommand(&storeFlag))
	rootCmd.AddCommand(newServeCommand(&storeFlag))
	rootCmd.AddCommand(newHistoryCommand(&storeFlag))

	return rootCmd
}
