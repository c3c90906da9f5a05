package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"slipscan/internal/scanner"
	"slipscan/internal/stats"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [connect-code]",
		Short: "Summarize win/loss statistics for a player",
		Long: "Scans the replay directory (using the scan cache) and summarizes " +
			"results for the given connect code, or the configured player when omitted.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			code := cfg.Player.ConnectCode
			if len(args) > 0 {
				code = strings.ToUpper(strings.TrimSpace(args[0]))
			}
			if code == "" {
				return errors.New("no connect code given and none configured (set player.connect_code)")
			}

			return ctx.withScanLock(func() error {
				cache, err := ctx.openScanCache()
				if err != nil {
					return err
				}
				s := scanner.New(scanner.Options{
					Workers:        cfg.Scanner.Workers,
					Extension:      cfg.Scanner.Extension,
					FollowSymlinks: cfg.Scanner.FollowSymlinks,
					Cache:          cache,
					Logger:         ctx.loggerValue(),
				})
				report, err := s.Scan(cmd.Context(), cfg.Paths.ReplayDir)
				if cache != nil {
					if persistErr := cache.Persist(); persistErr != nil && err == nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: persist scan cache: %v\n", persistErr)
					}
				}
				if err != nil {
					return err
				}

				summary := stats.Summarize(report, code)
				if ctx.jsonOutput() {
					return writeJSON(cmd, summary)
				}

				printStats(cmd, summary)
				printBreakdowns(cmd, summary)
				return nil
			})
		},
	}
	return cmd
}

func printBreakdowns(cmd *cobra.Command, summary stats.Stats) {
	out := cmd.OutOrStdout()

	if len(summary.Characters) > 0 {
		fmt.Fprintln(out, "Characters:")
		fmt.Fprintln(out, renderBreakdownTable(summary.Characters))
	}
	if len(summary.Stages) > 0 {
		fmt.Fprintln(out, "Stages:")
		fmt.Fprintln(out, renderBreakdownTable(summary.Stages))
	}
}

func renderBreakdownTable(breakdowns []stats.Breakdown) string {
	rows := make([][]string, 0, len(breakdowns))
	for _, b := range breakdowns {
		rows = append(rows, []string{
			b.Name,
			fmt.Sprintf("%d", b.Games),
			fmt.Sprintf("%d", b.Wins),
			fmt.Sprintf("%d", b.Losses),
		})
	}
	return renderTable(
		[]string{"Name", "Games", "Wins", "Losses"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	)
}
