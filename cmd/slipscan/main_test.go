package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"slipscan/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	replayDir  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	replayDir := filepath.Join(base, "replays")
	if err := os.MkdirAll(replayDir, 0o755); err != nil {
		t.Fatalf("create replay dir: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
replay_dir = %q
data_dir = %q
cache_dir = %q
log_dir = %q

[player]
connect_code = "ALPH#001"

[scanner]
workers = 2

[scan_cache]
enabled = true
path = %q

[slippi]
enabled = false
`,
		replayDir,
		filepath.Join(base, "data"),
		filepath.Join(base, "cache"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "cache", "scancache.json"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{baseDir: base, configPath: configPath, replayDir: replayDir}
}

func (e *cliTestEnv) writeReplays(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		path := filepath.Join(e.replayDir, fmt.Sprintf("game_%02d.slp", i))
		winner := i % 2
		testsupport.WriteReplay(t, path, testsupport.ReplayFixture{
			StartAt:    time.Date(2026, 5, 14, 20, 30, i, 0, time.UTC),
			WinnerPort: winner,
		})
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.configPath); err == nil {
		t.Fatal("expected error re-initializing without --overwrite")
	}
}

func TestConfigShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.replayDir)
	requireContains(t, out, "ALPH#001")
}

func TestScanCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeReplays(t, 4)
	if err := os.WriteFile(filepath.Join(env.replayDir, "broken.slp"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"scan"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "4 decoded")
	requireContains(t, out, "1 failed")
	requireContains(t, out, "broken.slp")
	requireContains(t, out, "Battlefield")
	requireContains(t, out, "ALPH#001: 4 games")

	// Second scan is served from the cache.
	out, _, err = runCLI(t, []string{"scan"}, env.configPath)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	requireContains(t, out, "5 cached")
}

func TestScanCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeReplays(t, 2)

	out, _, err := runCLI(t, []string{"--json", "scan"}, env.configPath)
	if err != nil {
		t.Fatalf("scan --json: %v", err)
	}
	requireContains(t, out, `"report"`)
	requireContains(t, out, `"stats"`)
	requireContains(t, out, `"win_rate"`)
}

func TestStatsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeReplays(t, 4)

	out, _, err := runCLI(t, []string{"stats"}, env.configPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	requireContains(t, out, "ALPH#001: 4 games, 2 wins, 2 losses")
	requireContains(t, out, "Characters:")

	out, _, err = runCLI(t, []string{"stats", "BETA#002"}, env.configPath)
	if err != nil {
		t.Fatalf("stats for opponent: %v", err)
	}
	requireContains(t, out, "BETA#002: 4 games, 2 wins, 2 losses")
}

func TestStatsCommandWarnsWhenCachePersistFails(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeReplays(t, 2)

	// A directory at the cache path makes the persist rename fail while the
	// scan itself still succeeds.
	cachePath := filepath.Join(env.baseDir, "cache", "scancache.json")
	if err := os.MkdirAll(cachePath, 0o755); err != nil {
		t.Fatal(err)
	}

	out, errOut, err := runCLI(t, []string{"stats"}, env.configPath)
	if err != nil {
		t.Fatalf("stats: %v\n%s", err, errOut)
	}
	requireContains(t, out, "ALPH#001: 2 games")
	requireContains(t, errOut, "warning: persist scan cache")
}

func TestShowCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.replayDir, "game.slp")
	testsupport.WriteReplay(t, path, testsupport.ReplayFixture{})

	out, _, err := runCLI(t, []string{"show", path}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Battlefield")
	requireContains(t, out, "Alpha (Fox)")
	requireContains(t, out, "(winner)")

	if _, _, err := runCLI(t, []string{"show", filepath.Join(env.replayDir, "missing.slp")}, env.configPath); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestHistoryCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeReplays(t, 3)

	if _, _, err := runCLI(t, []string{"scan"}, env.configPath); err != nil {
		t.Fatalf("scan: %v", err)
	}

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Battlefield")

	out, _, err = runCLI(t, []string{"history", "--sessions"}, env.configPath)
	if err != nil {
		t.Fatalf("history --sessions: %v", err)
	}
	requireContains(t, out, env.replayDir)

	out, _, err = runCLI(t, []string{"history", "--player", "BETA#002"}, env.configPath)
	if err != nil {
		t.Fatalf("history --player: %v", err)
	}
	requireContains(t, out, "Beta (Marth)")
}

func TestCacheCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeReplays(t, 2)

	out, _, err := runCLI(t, []string{"cache", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("cache show: %v", err)
	}
	requireContains(t, out, "Scan cache is empty")

	if _, _, err := runCLI(t, []string{"scan"}, env.configPath); err != nil {
		t.Fatalf("scan: %v", err)
	}

	out, _, err = runCLI(t, []string{"cache", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("cache show after scan: %v", err)
	}
	requireContains(t, out, "2 cached entries")

	out, _, err = runCLI(t, []string{"cache", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Cleared 2 cached entries")
}

func TestDoctorCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "Replay directory")
	requireContains(t, out, "[OK]")
}
