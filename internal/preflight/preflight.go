package preflight

import (
	"context"

	"slipscan/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable environment checks for the given config.
// Optional integrations are only checked when enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableDirectory("Replay directory", cfg.Paths.ReplayDir),
		CheckWritableDirectory("Data directory", cfg.Paths.DataDir),
		CheckWritableDirectory("Cache directory", cfg.Paths.CacheDir),
		CheckWritableDirectory("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Data directory space", cfg.Paths.DataDir),
	}

	if cfg.Slippi.Enabled {
		results = append(results, CheckRankEndpoint(ctx, cfg))
	}

	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
