package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kittclouds/storykitt/pkg/narrative"
)

func NewForkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fork <parent-node> <branch-name> [content]",
		Short: "Start an alternate branch from an existing node",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  makeForkRunner(a),
	}

	cmd.Flags().String("reason", "", "Why this branch exists")
	cmd.Flags().String("title", "", "First segment title")
	cmd.Flags().StringSlice("tags", nil, "First segment tags")
	addMetadataFlags(cmd)
	return cmd
}

func makeForkRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		content, err := resolveContent(args[2:])
		if err != nil {
			return err
		}

		db, story, err := a.loadStory()
		if err != nil {
			return err
		}
		defer db.Close()

		reason, _ := cmd.Flags().GetString("reason")
		title, _ := cmd.Flags().GetString("title")
		tags, _ := cmd.Flags().GetStringSlice("tags")

		next, node, err := story.Fork(args[0], args[1], reason, narrative.Draft{
			Title:    title,
			Content:  content,
			Tags:     tags,
			Metadata: metadataFromFlags(cmd),
		}, time.Now())
		if err != nil {
			return fmt.Errorf("fork: %w", err)
		}
		if err := db.SaveStory(next); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Forked %s at %s, first node %s\n", node.BranchID, args[0], node.ID)
		return nil
	}
}
