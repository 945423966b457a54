package main

import (
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/gazette/internal/config"
	"github.com/abelbrown/gazette/internal/feeds"
	"github.com/abelbrown/gazette/internal/server"
	"github.com/abelbrown/gazette/internal/store"
	"github.com/abelbrown/gazette/internal/work"
)

func newServeCommand(storeDir *string) *cobra.Command {
	var configPath string
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web reader",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrCreate(configPath)
			if err != nil {
				return err
			}

			st, err := store.Open(*storeDir)
			if err != nil {
				return err
			}

			fetcher := feeds.NewFetcher(feedTimeoutSeconds * time.Second)

			pool := work.NewPool(runtime.NumCPU())
			pool.Start()
			defer pool.Stop()

			srv := server.New(st, fetcher, pool, cfg.AllFeeds())
			return srv.Run(host, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "feeds.toml", "path to config file")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "host to bind")
	cmd.Flags().IntVarP(&port, "port", "p", 7878, "port to bind")

	return cmd
}
