package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittclouds/storykitt/pkg/auditor"
)

func NewAuditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check the recent story window for contradictions",
		Args:  cobra.NoArgs,
		RunE:  makeAuditRunner(a),
	}

	cmd.Flags().Int("window", 0, "Turns to examine (defaults to STORYKITT_AUDIT_WINDOW)")
	cmd.Flags().Bool("json", false, "Output the full verdict as JSON")
	return cmd
}

func makeAuditRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		db, story, err := a.loadStory()
		if err != nil {
			return err
		}
		defer db.Close()

		window, _ := cmd.Flags().GetInt("window")
		if window <= 0 {
			window = a.cfg.AuditWindow
		}

		aud, err := auditor.New()
		if err != nil {
			return err
		}
		verdict := aud.Audit(*story, window)

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(verdict)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Score %d/100, %d findings\n", verdict.OverallScore, len(verdict.Findings))
		for _, f := range verdict.Findings {
			fmt.Fprintf(out, "  [%s/%s] turn %d: %s\n", f.Type, f.Severity, f.TurnIndex, f.Description)
		}
		if verdict.NeedsRevision {
			fmt.Fprintf(out, "Needs revision: %s\n", verdict.RevisionReason)
		}
		return nil
	}
}
