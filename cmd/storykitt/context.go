package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittclouds/storykitt/pkg/elements"
	"github.com/kittclouds/storykitt/pkg/selector"
)

func NewContextCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context <text>",
		Short: "Render the element context block for a piece of story text",
		Args:  cobra.ExactArgs(1),
		RunE:  makeContextRunner(a),
	}

	cmd.Flags().Int("max", 0, "Max recalled elements (defaults to STORYKITT_CONTEXT_MAX_ELEMENTS)")
	return cmd
}

func makeContextRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		db, err := a.openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		catalog, err := db.LoadCatalog()
		if err != nil {
			return err
		}
		if catalog == nil {
			catalog = &elements.Catalog{}
		}

		max, _ := cmd.Flags().GetInt("max")
		if max <= 0 {
			max = a.cfg.ContextMaxElements
		}

		block := selector.New().AbbreviatedContext(*catalog, args[0], max)
		if block == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No relevant elements.")
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), block)
		return nil
	}
}
