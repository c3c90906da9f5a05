package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"slipscan/internal/ranks"
)

func newRankCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank [connect-code]",
		Short: "Look up the ranked standing for a connect code",
		Args:  cobra.MaximumNArgs(1),
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
			if !cfg.Slippi.Enabled {
				return errors.New("rank lookups are disabled (set slippi.enabled in the config)")
			}

			client := ranks.NewClient(ranks.Config{
				GraphQLURL:     cfg.Slippi.GraphQLURL,
				UserAgent:      cfg.Slippi.UserAgent,
				TimeoutSeconds: cfg.Slippi.TimeoutSeconds,
			})

			profile, err := client.Lookup(cmd.Context(), code)
			if err != nil {
				if errors.Is(err, ranks.ErrNoProfile) {
					if ctx.jsonOutput() {
						return writeJSON(cmd, map[string]string{
							"connect_code": code,
							"rank":         "Unranked",
						})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: Unranked\n", code)
					return nil
				}
				return err
			}

			if ctx.jsonOutput() {
				payload := map[string]any{
					"connect_code": profile.ConnectCode,
					"display_name": profile.DisplayName,
					"rank":         ranks.DisplayRank(profile),
					"wins":         profile.Wins,
					"losses":       profile.Losses,
				}
				if profile.HasRating() {
					payload["rating_ordinal"] = *profile.RatingOrdinal
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s): %s\n", profile.DisplayName, profile.ConnectCode, ranks.DisplayRank(profile))
			if profile.HasRating() {
				fmt.Fprintf(out, "  Ranked record: %d-%d\n", profile.Wins, profile.Losses)
			}
			return nil
		},
	}
	return cmd
}
