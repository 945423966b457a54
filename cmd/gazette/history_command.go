package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelbrown/gazette/internal/store"
)

func newHistoryCommand(storeDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the archive's ingestion log",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(*storeDir)
			if err != nil {
				return err
			}

			records, err := st.History()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("Nothing ingested yet.")
				return nil
			}

			for _, rec := range records {
				fmt.Printf("%s  %-30s  %s\n", rec.Time, rec.FeedName, rec.Title)
			}
			fmt.Printf("\n%d articles archived.\n", len(records))
			return nil
		},
	}
}
