package main

import (
	"context"
	"runtime"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/gazette/internal/config"
	"github.com/abelbrown/gazette/internal/coord"
	"github.com/abelbrown/gazette/internal/feeds"
	"github.com/abelbrown/gazette/internal/store"
	"github.com/abelbrown/gazette/internal/ui"
	"github.com/abelbrown/gazette/internal/work"
)

func newUICommand(storeDir *string) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the terminal reader with feeds from the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrCreate(configPath)
			if err != nil {
				return err
			}

			st, err := store.Open(*storeDir)
			if err != nil {
				return err
			}

			configured := cfg.AllFeeds()
			fetcher := feeds.NewFetcher(feedTimeoutSeconds * time.Second)

			pool := work.NewPool(runtime.NumCPU())
			pool.Start()
			defer pool.Stop()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			app := ui.NewWithFeeds(st, fetcher, configured)
			program := tea.NewProgram(app, tea.WithAltScreen())

			coordinator := coord.New(st, fetcher, pool, configured)
			coordinator.Start(ctx, program)

			_, err = program.Run()
			cancel()
			coordinator.Wait()
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "feeds.toml", "path to config file")

	return cmd
}
