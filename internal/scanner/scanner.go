package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"slipscan/internal/logging"
	"slipscan/internal/replay"
	"slipscan/internal/scancache"
)

// Options configures a Scanner.
type Options struct {
	// Workers bounds decode parallelism; zero means one per CPU core.
	Workers int
	// Extension filters candidate files, e.g. ".slp".
	Extension string
	// FollowSymlinks walks into symlinked directories. Cycle protection
	// applies either way.
	FollowSymlinks bool
	// Cache, when non-nil, is consulted before decoding and updated after.
	Cache *scancache.Cache
	// Decoder defaults to replay.FileDecoder.
	Decoder replay.Decoder
	// Progress, when non-nil, is invoked as files complete. Callbacks may
	// arrive from worker goroutines.
	Progress func(Progress)
	Logger   *slog.Logger
}

// Scanner walks a directory tree, decodes candidate replay files with
// bounded parallelism, and assembles a Report.
type Scanner struct {
	opts   Options
	logger *slog.Logger
}

// New constructs a Scanner, applying option defaults.
func New(opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Extension == "" {
		opts.Extension = ".slp"
	}
	if opts.Decoder == nil {
		opts.Decoder = replay.FileDecoder{}
	}
	return &Scanner{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "scanner"),
	}
}

// Scan walks root and returns a Report covering every candidate file. An
// inaccessible root is a scan-level failure with no partial report; per-file
// failures land in Report.Errors and never abort the scan. Cancelling ctx
// abandons in-flight work; the cache keeps only entries for files that
// finished.
func (s *Scanner) Scan(ctx context.Context, root string) (*Report, error) {
	started := time.Now()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve scan root %q: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("scan root %q: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %q is not a directory", absRoot)
	}

	report := &Report{
		ScanID:    uuid.NewString(),
		Root:      absRoot,
		ScannedAt: started.UTC(),
		Records:   make(map[string]*replay.MatchRecord),
		Errors:    make(map[string]FileError),
	}

	collector := &collector{report: report, progress: s.opts.Progress}

	if err := s.dispatch(ctx, absRoot, collector); err != nil {
		return nil, err
	}

	report.Elapsed = time.Since(started)
	s.logger.Info("scan complete",
		logging.String(logging.FieldScanID, report.ScanID),
		logging.String(logging.FieldRoot, absRoot),
		logging.Int("records", len(report.Records)),
		logging.Int("errors", len(report.Errors)),
		logging.Int("cache_hits", report.CacheHits),
		logging.Duration("elapsed", report.Elapsed))
	return report, nil
}

// collector merges per-file outcomes as workers finish. Merging is keyed by
// path, so completion order never affects the result.
type collector struct {
	mu         sync.Mutex
	report     *Report
	progress   func(Progress)
	discovered int
	completed  int
}

func (c *collector) discover(n int) {
	c.mu.Lock()
	c.discovered += n
	c.mu.Unlock()
}

func (c *collector) record(path string, record *replay.MatchRecord, fromCache bool) {
	c.mu.Lock()
	c.report.Records[path] = record
	c.report.FilesSeen++
	if fromCache {
		c.report.CacheHits++
	} else {
		c.report.Decoded++
	}
	c.finishLocked()
}

func (c *collector) fail(path string, kind replay.ErrorKind, message string, fromCache bool) {
	c.mu.Lock()
	c.report.Errors[path] = FileError{Kind: kind, Message: message}
	c.report.FilesSeen++
	c.report.Failed++
	if fromCache {
		c.report.CacheHits++
	}
	c.finishLocked()
}

func (c *collector) warn(message string) {
	c.mu.Lock()
	c.report.Warnings = append(c.report.Warnings, message)
	c.mu.Unlock()
}

// finishLocked bumps the completion counter and fires the progress callback
// outside the lock.
func (c *collector) finishLocked() {
	c.completed++
	snapshot := Progress{Completed: c.completed, Discovered: c.discovered}
	progress := c.progress
	c.mu.Unlock()
	if progress != nil {
		progress(snapshot)
	}
}

// walk streams candidate file paths into out, recursing with symlink-cycle
// protection. Unreadable subdirectories become report warnings, not errors.
func (s *Scanner) walk(ctx context.Context, dir string, visited map[string]struct{}, c *collector, out chan<- string) error {
	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		c.warn(fmt.Sprintf("skipping %s: %v", dir, err))
		return nil
	}
	if _, seen := visited[canonical]; seen {
		return nil
	}
	visited[canonical] = struct{}{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		c.warn(fmt.Sprintf("skipping unreadable directory %s: %v", dir, err))
		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, entry.Name())

		if entry.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				c.warn(fmt.Sprintf("skipping broken symlink %s: %v", path, err))
				continue
			}
			if target.IsDir() {
				if s.opts.FollowSymlinks {
					if err := s.walk(ctx, path, visited, c, out); err != nil {
						return err
					}
				}
				continue
			}
			// Symlinked files are treated like regular candidates.
		} else if entry.IsDir() {
			if err := s.walk(ctx, path, visited, c, out); err != nil {
				return err
			}
			continue
		}

		if !strings.EqualFold(filepath.Ext(entry.Name()), s.opts.Extension) {
			continue
		}

		c.discover(1)
		select {
		case out <- path:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
