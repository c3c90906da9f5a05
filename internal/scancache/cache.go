package scancache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"slipscan/internal/fileutil"
	"slipscan/internal/logging"
	"slipscan/internal/replay"
)

// Fingerprint is the cheap change-detection signature for one file. It is
// deliberately not a content hash; computing it never reads file bytes.
type Fingerprint struct {
	Size    int64 `json:"size"`
	ModTime int64 `json:"mod_time_unix_nano"`
}

// FingerprintOf stats path and returns its current fingerprint.
func FingerprintOf(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{Size: info.Size(), ModTime: info.ModTime().UnixNano()}, nil
}

// Tombstone remembers a decode failure that is stable for unchanged bytes.
type Tombstone struct {
	Kind    replay.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

// Entry associates a fingerprint with a decode outcome: exactly one of
// Record and Failure is set. Entries are replaced whole, never mutated.
type Entry struct {
	Path        string              `json:"path"`
	Fingerprint Fingerprint         `json:"fingerprint"`
	Record      *replay.MatchRecord `json:"record,omitempty"`
	Failure     *Tombstone          `json:"failure,omitempty"`
	CachedAt    time.Time           `json:"cached_at"`
}

type cacheFile struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

const fileVersion = 1

// Cache is the scan-to-scan decode-result cache. Lookups and stores are safe
// for concurrent use by scan workers; persistence happens explicitly at the
// end of a scan via Persist, which snapshots under the read lock.
type Cache struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates a cache backed by the file at path. If path is empty, the cache
// is non-functional (all operations become no-ops). A corrupt or unreadable
// file degrades to an empty cache with a logged warning; the scan proceeds
// cold.
func New(path string, logger *slog.Logger) *Cache {
	logger = logging.NewComponentLogger(logger, "scancache")

	c := &Cache{
		path:    path,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]Entry),
	}
	if path == "" {
		return c
	}

	if err := c.load(); err != nil {
		logger.Warn("failed to load scan cache",
			logging.String(logging.FieldEventType, "scancache_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldImpact, "all replays will be re-parsed"))
		c.entries = make(map[string]Entry)
	}
	return c
}

// Lookup returns the cached entry for path, but only when the stored
// fingerprint matches fp exactly. A stale entry is a miss.
func (c *Cache) Lookup(path string, fp Fingerprint) (Entry, bool) {
	if c.path == "" || strings.TrimSpace(path) == "" {
		return Entry{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[path]
	if !found || entry.Fingerprint != fp {
		return Entry{}, false
	}
	return entry, true
}

// StoreRecord remembers a successful decode.
func (c *Cache) StoreRecord(path string, fp Fingerprint, record *replay.MatchRecord) {
	if c.path == "" || record == nil {
		return
	}
	c.put(Entry{Path: path, Fingerprint: fp, Record: record, CachedAt: c.now().UTC()})
}

// StoreFailure remembers a decode failure as a tombstone. Failure kinds that
// may be transient (I/O errors) are silently dropped so the next scan retries
// the file.
func (c *Cache) StoreFailure(path string, fp Fingerprint, kind replay.ErrorKind, message string) {
	if c.path == "" || !kind.Cacheable() {
		return
	}
	c.put(Entry{Path: path, Fingerprint: fp, Failure: &Tombstone{Kind: kind, Message: message}, CachedAt: c.now().UTC()})
}

func (c *Cache) put(entry Entry) {
	c.mu.Lock()
	c.entries[entry.Path] = entry
	c.mu.Unlock()
}

// Remove drops the entry for path, if any.
func (c *Cache) Remove(path string) {
	if c.path == "" {
		return
	}
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Count returns the number of cached entries.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns a snapshot of all entries sorted by path.
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// Clear removes all entries and persists the empty cache.
func (c *Cache) Clear() error {
	if c.path == "" {
		return nil
	}
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
	return c.Persist()
}

// Persist writes a consistent point-in-time snapshot to disk atomically.
func (c *Cache) Persist() error {
	if c.path == "" {
		return nil
	}

	snapshot := cacheFile{Version: fileVersion, Entries: c.Entries()}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scan cache: %w", err)
	}
	if err := fileutil.WriteFileAtomic(c.path, data, 0o644); err != nil {
		return fmt.Errorf("persist scan cache: %w", err)
	}

	c.logger.Debug("persisted scan cache",
		logging.Int("entry_count", len(snapshot.Entries)),
		logging.String(logging.FieldPath, c.path))
	return nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // fresh start
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	if file.Version > fileVersion {
		return fmt.Errorf("cache file version %d is newer than supported %d", file.Version, fileVersion)
	}

	c.entries = make(map[string]Entry, len(file.Entries))
	for _, entry := range file.Entries {
		if strings.TrimSpace(entry.Path) == "" {
			continue
		}
		if entry.Record == nil && entry.Failure == nil {
			continue
		}
		c.entries[entry.Path] = entry
	}

	c.logger.Debug("loaded scan cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String(logging.FieldPath, c.path))
	return nil
}
