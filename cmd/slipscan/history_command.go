package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"slipscan/internal/library"
	"slipscan/internal/replay"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var player string
	var sessions bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse matches recorded in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := library.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if sessions {
				return printScanSessions(cmd, ctx, store, limit)
			}

			var records []*replay.MatchRecord
			code := strings.ToUpper(strings.TrimSpace(player))
			if code != "" {
				records, err = store.MatchesForPlayer(cmd.Context(), code, limit)
			} else {
				records, err = store.RecentMatches(cmd.Context(), limit)
				code = cfg.Player.ConnectCode
			}
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, records)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No matches in the library; run `slipscan scan` first")
				return nil
			}
			fmt.Fprintln(out, renderMatchTable(records, code))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 25, "Maximum number of rows")
	cmd.Flags().StringVarP(&player, "player", "p", "", "Only matches including this connect code")
	cmd.Flags().BoolVar(&sessions, "sessions", false, "Show recorded scan sessions instead of matches")
	return cmd
}

func printScanSessions(cmd *cobra.Command, ctx *commandContext, store *library.Store, limit int) error {
	history, err := store.ScanHistory(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, history)
	}

	out := cmd.OutOrStdout()
	if len(history) == 0 {
		fmt.Fprintln(out, "No scan sessions recorded")
		return nil
	}

	rows := make([][]string, 0, len(history))
	for _, s := range history {
		rows = append(rows, []string{
			formatStartTime(s.ScannedAt),
			s.Root,
			fmt.Sprintf("%d", s.FilesSeen),
			fmt.Sprintf("%d", s.Decoded),
			fmt.Sprintf("%d", s.CacheHits),
			fmt.Sprintf("%d", s.Failed),
			s.Elapsed.String(),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Scanned", "Root", "Files", "Decoded", "Cached", "Failed", "Elapsed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	return nil
}
