package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show story, bank and catalog totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, story, err := a.loadStory()
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Story: %d nodes, %d words, %d branches (current %s)\n",
				story.TotalNodes, story.TotalWords, len(story.Branches), story.CurrentBranchID)

			banks, err := db.LoadBanks()
			if err != nil {
				return err
			}
			if banks != nil {
				fmt.Fprintf(out, "Banks: %d total, %d active, %d bytes\n",
					banks.TotalBanks, banks.ActiveBanks, banks.TotalSize)
			}

			catalog, err := db.LoadCatalog()
			if err != nil {
				return err
			}
			if catalog != nil {
				fmt.Fprintf(out, "Elements: %d total, %d hints\n",
					catalog.TotalElements, len(catalog.Hints))
			}
			return nil
		},
	}
}
