package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittclouds/storykitt/pkg/membank"
)

func NewCleanupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Evict stale memory banks",
		Args:  cobra.NoArgs,
		RunE:  makeCleanupRunner(a),
	}

	cmd.Flags().Int("max-age-hours", 0, "Staleness threshold (defaults to STORYKITT_BANK_MAX_AGE_HOURS)")
	cmd.Flags().Int("max-size-bytes", 0, "Total size budget (defaults to STORYKITT_BANK_MAX_SIZE_BYTES)")
	cmd.Flags().Bool("keep-active", true, "Keep stale banks while under the size budget")
	return cmd
}

func makeCleanupRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		db, err := a.openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		banks, err := db.LoadBanks()
		if err != nil {
			return err
		}
		if banks == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No memory banks.")
			return nil
		}

		var opts membank.CleanupOptions
		ageHours, _ := cmd.Flags().GetInt("max-age-hours")
		opts.MaxAgeHours = float64(ageHours)
		opts.MaxSizeBytes, _ = cmd.Flags().GetInt("max-size-bytes")
		opts.KeepActive, _ = cmd.Flags().GetBool("keep-active")
		if opts.MaxAgeHours <= 0 {
			opts.MaxAgeHours = float64(a.cfg.BankMaxAgeHours)
		}
		if opts.MaxSizeBytes <= 0 {
			opts.MaxSizeBytes = a.cfg.BankMaxSizeBytes
		}

		before := banks.TotalBanks
		next := membank.NewManager().Cleanup(*banks, opts)
		if err := db.SaveBanks(next); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Evicted %d of %d banks, %d bytes remain\n",
			before-next.TotalBanks, before, next.TotalSize)
		return nil
	}
}
