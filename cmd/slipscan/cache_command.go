package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the scan cache",
	}
	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display scan cache contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.openScanCache()
			if err != nil {
				return err
			}

			entries := cache.Entries()
			if ctx.jsonOutput() {
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Scan cache is empty")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				outcome := "decoded"
				if entry.Failure != nil {
					outcome = string(entry.Failure.Kind)
				}
				rows = append(rows, []string{
					entry.Path,
					outcome,
					fmt.Sprintf("%d", entry.Fingerprint.Size),
					formatStartTime(entry.CachedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Path", "Outcome", "Size", "Cached"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d cached entries\n", len(entries))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all scan cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.openScanCache()
			if err != nil {
				return err
			}
			count := cache.Count()
			if err := cache.Clear(); err != nil {
				return fmt.Errorf("clear scan cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached entries\n", count)
			return nil
		},
	}
}
