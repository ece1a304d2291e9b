package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kittclouds/storykitt/pkg/narrative"
)

func NewInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new story database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			existing, err := db.LoadStory()
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("%s already holds a story with %d nodes", a.cfg.DBPath, existing.TotalNodes)
			}

			story := narrative.NewStore(time.Now())
			if err := db.SaveStory(story); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized story in %s (branch %s)\n", a.cfg.DBPath, story.MainBranchID)
			return nil
		},
	}
}
