package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slipscan/internal/config"
	"slipscan/internal/replay"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var withRanks bool

	cmd := &cobra.Command{
		Use:   "show <replay>",
		Short: "Decode a single replay file and display it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			record, err := replay.FileDecoder{}.Decode(path)
			if err != nil {
				return err
			}

			if withRanks {
				resolver, err := ctx.rankResolver()
				if err != nil {
					return err
				}
				resolver.Annotate(cmd.Context(), record)
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, record)
			}

			printMatchDetail(cmd, record)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withRanks, "ranks", false, "Resolve ranked standings for the players")
	return cmd
}

func printMatchDetail(cmd *cobra.Command, record *replay.MatchRecord) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "File:     %s\n", record.SourcePath)
	fmt.Fprintf(out, "Played:   %s\n", formatStartTime(record.StartTime))
	fmt.Fprintf(out, "Stage:    %s\n", record.StageName())
	fmt.Fprintf(out, "Length:   %s\n", replay.FormatDuration(record.DurationFrames))
	if record.IsRanked {
		fmt.Fprintln(out, "Mode:     Ranked")
	}
	if record.IsTeams {
		fmt.Fprintln(out, "Teams:    yes")
	}

	fmt.Fprintln(out, "Players:")
	for _, p := range record.Players {
		line := fmt.Sprintf("  P%d  %s", p.Port+1, formatPlayer(p))
		if p.ConnectCode != "" {
			line += fmt.Sprintf("  [%s]", p.ConnectCode)
		}
		if p.Rank != "" {
			line += fmt.Sprintf("  %s", p.Rank)
		}
		if int(record.WinnerPort) == p.Port && record.WinnerPort >= 0 {
			line += "  (winner)"
		}
		fmt.Fprintln(out, line)
	}
}
