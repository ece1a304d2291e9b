package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kittclouds/storykitt/pkg/narrative"
)

func NewAppendCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append [content]",
		Short: "Append a story segment to the current or named branch",
		Long:  `Append a story segment. Reads content from stdin when not given as an argument. --ref targets a branch or node; empty means the current branch tip.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  makeAppendRunner(a),
	}

	cmd.Flags().String("ref", "", "Branch or node to append to")
	cmd.Flags().String("title", "", "Segment title")
	cmd.Flags().StringSlice("tags", nil, "Segment tags")
	addMetadataFlags(cmd)
	return cmd
}

func makeAppendRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		content, err := resolveContent(args)
		if err != nil {
			return err
		}

		db, story, err := a.loadStory()
		if err != nil {
			return err
		}
		defer db.Close()

		ref, _ := cmd.Flags().GetString("ref")
		title, _ := cmd.Flags().GetString("title")
		tags, _ := cmd.Flags().GetStringSlice("tags")

		next, node, err := story.Append(ref, narrative.Draft{
			Title:    title,
			Content:  content,
			Tags:     tags,
			Metadata: metadataFromFlags(cmd),
		}, time.Now())
		if err != nil {
			return fmt.Errorf("append: %w", err)
		}
		if err := db.SaveStory(next); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Appended %s (%s, %d words)\n", node.ID, node.URI, node.WordCount)
		return nil
	}
}

func resolveContent(args []string) (string, error) {
	if len(args) >= 1 && args[0] != "" {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("empty content")
	}
	return content, nil
}

func addMetadataFlags(cmd *cobra.Command) {
	cmd.Flags().String("author", "", "Segment author")
	cmd.Flags().String("mood", "", "Scene mood")
	cmd.Flags().String("location", "", "Scene location")
	cmd.Flags().StringSlice("characters", nil, "Characters present in the scene")
	cmd.Flags().StringSlice("events", nil, "Event tags (death, travel, quest, ...)")
}

func metadataFromFlags(cmd *cobra.Command) narrative.Metadata {
	author, _ := cmd.Flags().GetString("author")
	mood, _ := cmd.Flags().GetString("mood")
	location, _ := cmd.Flags().GetString("location")
	characters, _ := cmd.Flags().GetStringSlice("characters")
	events, _ := cmd.Flags().GetStringSlice("events")
	return narrative.Metadata{
		Author:     author,
		Mood:       mood,
		Location:   location,
		Characters: characters,
		Events:     events,
	}
}
