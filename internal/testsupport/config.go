// Package testsupport provides shared fixtures for slipscan tests: temp-dir
// backed configs and synthetic .slp replay files.
package testsupport

import (
	"path/filepath"
	"testing"

	"slipscan/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ReplayDir = filepath.Join(base, "replays")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.ScanCache.Path = filepath.Join(base, "cache", "scancache.json")
	cfg.Slippi.Enabled = false

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithConnectCode sets the local player identity on the test config.
func WithConnectCode(code string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Player.ConnectCode = code
	}
}

// WithWorkers pins the scanner worker count.
func WithWorkers(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scanner.Workers = n
	}
}
