package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/JamesStuff/jimbo-cam/internal/env"
	"github.com/JamesStuff/jimbo-cam/internal/journal"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var flagLimit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent upload cycles from the local journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := env.ConfigDir()
			if err != nil {
				return err
			}
			jnl, err := journal.Open(filepath.Join(configDir, journal.DefaultFileName))
			if err != nil {
				return err
			}
			defer jnl.Close()

			cycles, err := jnl.Recent(cmd.Context(), flagLimit)
			if err != nil {
				return err
			}
			if len(cycles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no cycles recorded yet")
				return nil
			}
			for _, c := range cycles {
				line := fmt.Sprintf("%s  %-15s", c.CapturedAt.Format(time.DateTime), c.Outcome)
				if c.StatusCode != 0 {
					line += fmt.Sprintf("  http=%d", c.StatusCode)
				}
				if c.SnapshotBytes > 0 {
					line += fmt.Sprintf("  bytes=%d", c.SnapshotBytes)
				}
				line += fmt.Sprintf("  took=%s", c.Duration.Round(time.Millisecond))
				if c.Detail != "" {
					line += "  " + c.Detail
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&flagLimit, "limit", 20, "Maximum number of cycles to show")
	return cmd
}
