package main

import (
	"github.com/spf13/cobra"
)

func NewRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "storykitt",
		Short:         "Branchable story persistence and consistency checking",
		Long:          `Manage a branchable story graph with per-branch memory banks, a story element catalog, and a heuristic consistency auditor.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.AddCommand(
		NewInitCmd(a),
		NewAppendCmd(a),
		NewForkCmd(a),
		NewAuditCmd(a),
		NewContextCmd(a),
		NewCleanupCmd(a),
		NewStatsCmd(a),
	)

	return rootCmd
}
