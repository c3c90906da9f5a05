package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"slipscan/internal/testsupport"
)

func TestCheckWritableDirectory(t *testing.T) {
	dir := t.TempDir()
	if result := CheckWritableDirectory("Data directory", dir); !result.Passed {
		t.Errorf("expected pass for temp dir: %+v", result)
	}

	missing := filepath.Join(dir, "missing")
	if result := CheckWritableDirectory("Data directory", missing); result.Passed {
		t.Errorf("expected failure for missing dir: %+v", result)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckWritableDirectory("Data directory", file); result.Passed {
		t.Errorf("expected failure for non-directory: %+v", result)
	}
}

func TestCheckReadableDirectory(t *testing.T) {
	if result := CheckReadableDirectory("Replay directory", t.TempDir()); !result.Passed {
		t.Errorf("expected pass: %+v", result)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	if result := CheckFreeSpace("Data directory space", t.TempDir()); !result.Passed {
		t.Errorf("expected pass on temp filesystem: %+v", result)
	}
}

func TestRunAllWithDisabledSlippi(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.ReplayDir, 0o755); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 checks, got %d", len(results))
	}
	for _, r := range results {
		if r.Name == "Rank endpoint" {
			t.Error("rank endpoint should not be checked while disabled")
		}
	}
	if !AllPassed(results) {
		t.Errorf("expected all checks to pass: %+v", results)
	}
}

func TestCheckRankEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"getUser":null}}`))
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Slippi.Enabled = true
	cfg.Slippi.GraphQLURL = server.URL

	result := CheckRankEndpoint(context.Background(), cfg)
	if !result.Passed {
		t.Errorf("expected endpoint check to pass: %+v", result)
	}

	cfg.Slippi.GraphQLURL = "http://127.0.0.1:1/graphql"
	if result := CheckRankEndpoint(context.Background(), cfg); result.Passed {
		t.Errorf("expected failure for unreachable endpoint: %+v", result)
	}
}
