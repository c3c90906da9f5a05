package main

import (
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"slipscan/internal/library"
	"slipscan/internal/scanner"
	"slipscan/internal/stats"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var workers int
	var noCache bool
	var noImport bool
	var limit int

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Scan a directory of replays and summarize the results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			root := cfg.Paths.ReplayDir
			if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
				root = args[0]
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withScanLock(func() error {
				cache, err := ctx.openScanCache()
				if err != nil {
					return err
				}
				if noCache {
					cache = nil
				}

				out := cmd.OutOrStdout()
				progress := func(p scanner.Progress) {}
				if isTerminal(out) && !ctx.jsonOutput() {
					progress = func(p scanner.Progress) {
						fmt.Fprintf(out, "\rScanning replays... %d/%d", p.Completed, p.Discovered)
					}
				}

				scanWorkers := cfg.Scanner.Workers
				if workers > 0 {
					scanWorkers = workers
				}
				s := scanner.New(scanner.Options{
					Workers:        scanWorkers,
					Extension:      cfg.Scanner.Extension,
					FollowSymlinks: cfg.Scanner.FollowSymlinks,
					Cache:          cache,
					Progress:       progress,
					Logger:         ctx.loggerValue(),
				})

				report, err := s.Scan(signalCtx, root)
				if cache != nil {
					if persistErr := cache.Persist(); persistErr != nil && err == nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: persist scan cache: %v\n", persistErr)
					}
				}
				if err != nil {
					return err
				}
				if isTerminal(out) && !ctx.jsonOutput() && report.FilesSeen > 0 {
					fmt.Fprintln(out)
				}

				if !noImport {
					store, err := library.Open(cfg)
					if err != nil {
						return err
					}
					defer store.Close()
					if err := store.ImportReport(signalCtx, report); err != nil {
						return fmt.Errorf("import scan into library: %w", err)
					}
				}

				code := cfg.Player.ConnectCode
				summary := stats.Summarize(report, code)

				if ctx.jsonOutput() {
					return writeJSON(cmd, struct {
						Report *scanner.Report `json:"report"`
						Stats  stats.Stats     `json:"stats"`
					}{report, summary})
				}

				printScanSummary(cmd, report, summary, code, limit)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Override the configured worker count")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Decode every file, ignoring the scan cache")
	cmd.Flags().BoolVar(&noImport, "no-import", false, "Skip updating the match library")
	cmd.Flags().IntVarP(&limit, "limit", "n", 15, "Number of recent matches to display (0 for all)")
	return cmd
}

func printScanSummary(cmd *cobra.Command, report *scanner.Report, summary stats.Stats, code string, limit int) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Scanned %s: %d files, %d decoded, %d cached, %d failed (%s)\n",
		report.Root, report.FilesSeen, report.Decoded, report.CacheHits, report.Failed,
		report.Elapsed.Round(10*time.Millisecond))

	for _, warning := range report.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	if len(report.Errors) > 0 {
		paths := make([]string, 0, len(report.Errors))
		for path := range report.Errors {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		fmt.Fprintln(out, "Undecodable files:")
		for _, path := range paths {
			fe := report.Errors[path]
			fmt.Fprintf(out, "  %s: %s (%s)\n", path, fe.Message, fe.Kind)
		}
	}

	records := report.RecordsByTime()
	if len(records) == 0 {
		fmt.Fprintln(out, "No replays found")
		return
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	fmt.Fprintln(out, renderMatchTable(records, code))

	if code != "" {
		printStats(cmd, summary)
	}
}

func printStats(cmd *cobra.Command, summary stats.Stats) {
	out := cmd.OutOrStdout()

	rate := "N/A"
	if summary.WinRate.Defined {
		rate = fmt.Sprintf("%.1f%%", summary.WinRate.Percent)
	}
	fmt.Fprintf(out, "%s: %d games, %d wins, %d losses, win rate %s\n",
		summary.ConnectCode, summary.Games, summary.Wins, summary.Losses, rate)
	if summary.NoContests > 0 || summary.Unknown > 0 {
		fmt.Fprintf(out, "  %d no contest, %d undecided\n", summary.NoContests, summary.Unknown)
	}
	if opp := summary.MostRecentOpponent; opp != nil {
		label := opp.NetplayName
		if label == "" {
			label = opp.ConnectCode
		}
		fmt.Fprintf(out, "  Last opponent: %s (%s)\n", label, opp.Character)
	}
}
