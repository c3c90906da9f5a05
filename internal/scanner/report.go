package scanner

import (
	"sort"
	"time"

	"slipscan/internal/replay"
)

// FileError records why one file could not be decoded.
type FileError struct {
	Kind    replay.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

// Report is the outcome of one full directory scan. It exclusively owns its
// records and errors; consumers treat it as a read-only snapshot.
type Report struct {
	ScanID    string                         `json:"scan_id"`
	Root      string                         `json:"root"`
	ScannedAt time.Time                      `json:"scanned_at"`
	Records   map[string]*replay.MatchRecord `json:"records"`
	Errors    map[string]FileError           `json:"errors"`
	Warnings  []string                       `json:"warnings,omitempty"`

	FilesSeen int           `json:"files_seen"`
	CacheHits int           `json:"cache_hits"`
	Decoded   int           `json:"decoded"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
}

// RecordsByTime returns the records ordered most recent first, with source
// path as a deterministic tiebreak.
func (r *Report) RecordsByTime() []*replay.MatchRecord {
	records := make([]*replay.MatchRecord, 0, len(r.Records))
	for _, record := range r.Records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].StartTime.Equal(records[j].StartTime) {
			return records[i].StartTime.After(records[j].StartTime)
		}
		return records[i].SourcePath < records[j].SourcePath
	})
	return records
}

// Progress is delivered to the observer as files complete.
type Progress struct {
	Completed  int
	Discovered int
}
