package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"slipscan/internal/replay"
	"slipscan/internal/scanner"
)

// ScanSession is one recorded import of a scan report.
type ScanSession struct {
	ScanID    string
	Root      string
	ScannedAt time.Time
	FilesSeen int
	CacheHits int
	Decoded   int
	Failed    int
	Elapsed   time.Duration
}

// HealthSummary aggregates library state for diagnostic output.
type HealthSummary struct {
	DBPath   string
	Matches  int
	Players  int
	Sessions int
	LastScan time.Time
}

// ImportReport upserts every record of a finished scan and logs the session.
// Matches are keyed by source path, so re-importing an overlapping scan
// replaces rather than duplicates.
func (s *Store) ImportReport(ctx context.Context, report *scanner.Report) error {
	if report == nil {
		return nil
	}
	ctx = ensureContext(ctx)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin import tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		importedAt := time.Now().UTC().Format(time.RFC3339Nano)
		for path, record := range report.Records {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO matches (source_path, stage_id, start_time, duration_frames,
    is_ranked, is_teams, has_cpu, winner_port, end_method, scan_id, imported_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(source_path) DO UPDATE SET
    stage_id = excluded.stage_id,
    start_time = excluded.start_time,
    duration_frames = excluded.duration_frames,
    is_ranked = excluded.is_ranked,
    is_teams = excluded.is_teams,
    has_cpu = excluded.has_cpu,
    winner_port = excluded.winner_port,
    end_method = excluded.end_method,
    scan_id = excluded.scan_id,
    imported_at = excluded.imported_at`,
				path, record.StageID, record.StartTime.UTC().Format(time.RFC3339Nano),
				record.DurationFrames, record.IsRanked, record.IsTeams, record.HasCPU,
				record.WinnerPort, record.EndMethod, report.ScanID, importedAt,
			); err != nil {
				return fmt.Errorf("upsert match %s: %w", path, err)
			}

			if _, err := tx.ExecContext(ctx,
				`DELETE FROM match_players WHERE source_path = ?`, path); err != nil {
				return fmt.Errorf("clear players %s: %w", path, err)
			}
			for _, p := range record.Players {
				if _, err := tx.ExecContext(ctx, `
INSERT INTO match_players (source_path, port, character_id, costume, netplay_name, connect_code, is_cpu)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
					path, p.Port, p.CharacterID, p.Costume, p.NetplayName, p.ConnectCode, p.IsCPU,
				); err != nil {
					return fmt.Errorf("insert player %s port %d: %w", path, p.Port, err)
				}
			}
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO scan_sessions (scan_id, root, scanned_at, files_seen, cache_hits, decoded, failed, elapsed_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(scan_id) DO NOTHING`,
			report.ScanID, report.Root, report.ScannedAt.UTC().Format(time.RFC3339Nano),
			report.FilesSeen, report.CacheHits, report.Decoded, report.Failed,
			report.Elapsed.Milliseconds(),
		); err != nil {
			return fmt.Errorf("record scan session: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit import: %w", err)
		}
		return nil
	})
}

// RecentMatches returns matches ordered newest first.
func (s *Store) RecentMatches(ctx context.Context, limit int) ([]*replay.MatchRecord, error) {
	return s.queryMatches(ctx, `
SELECT source_path, stage_id, start_time, duration_frames,
    is_ranked, is_teams, has_cpu, winner_port, end_method
FROM matches
ORDER BY start_time DESC, source_path ASC
LIMIT ?`, normalizeLimit(limit))
}

// MatchesForPlayer returns matches including the connect code, newest first.
func (s *Store) MatchesForPlayer(ctx context.Context, connectCode string, limit int) ([]*replay.MatchRecord, error) {
	code := strings.ToUpper(strings.TrimSpace(connectCode))
	if code == "" {
		return nil, fmt.Errorf("matches for player: connect code required")
	}
	return s.queryMatches(ctx, `
SELECT m.source_path, m.stage_id, m.start_time, m.duration_frames,
    m.is_ranked, m.is_teams, m.has_cpu, m.winner_port, m.end_method
FROM matches m
JOIN match_players p ON p.source_path = m.source_path
WHERE UPPER(p.connect_code) = ?
ORDER BY m.start_time DESC, m.source_path ASC
LIMIT ?`, code, normalizeLimit(limit))
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

func (s *Store) queryMatches(ctx context.Context, query string, args ...any) ([]*replay.MatchRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var records []*replay.MatchRecord
	for rows.Next() {
		var (
			record    replay.MatchRecord
			startTime string
		)
		if err := rows.Scan(&record.SourcePath, &record.StageID, &startTime,
			&record.DurationFrames, &record.IsRanked, &record.IsTeams, &record.HasCPU,
			&record.WinnerPort, &record.EndMethod); err != nil {
			return nil, fmt.Errorf("scan match row: %w", err)
		}
		if record.StartTime, err = time.Parse(time.RFC3339Nano, startTime); err != nil {
			return nil, fmt.Errorf("parse start time %q: %w", startTime, err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, record := range records {
		if err := s.loadPlayers(ctx, record); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *Store) loadPlayers(ctx context.Context, record *replay.MatchRecord) error {
	rows, err := s.db.QueryContext(ctx, `
SELECT port, character_id, costume, netplay_name, connect_code, is_cpu
FROM match_players
WHERE source_path = ?
ORDER BY port ASC`, record.SourcePath)
	if err != nil {
		return fmt.Errorf("query players %s: %w", record.SourcePath, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p replay.PlayerEntry
		if err := rows.Scan(&p.Port, &p.CharacterID, &p.Costume,
			&p.NetplayName, &p.ConnectCode, &p.IsCPU); err != nil {
			return fmt.Errorf("scan player row: %w", err)
		}
		record.Players = append(record.Players, p)
	}
	return rows.Err()
}

// ScanHistory returns recorded scan sessions, newest first.
func (s *Store) ScanHistory(ctx context.Context, limit int) ([]ScanSession, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
SELECT scan_id, root, scanned_at, files_seen, cache_hits, decoded, failed, elapsed_ms
FROM scan_sessions
ORDER BY scanned_at DESC
LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query scan history: %w", err)
	}
	defer rows.Close()

	var sessions []ScanSession
	for rows.Next() {
		var (
			session   ScanSession
			scannedAt string
			elapsedMS int64
		)
		if err := rows.Scan(&session.ScanID, &session.Root, &scannedAt,
			&session.FilesSeen, &session.CacheHits, &session.Decoded, &session.Failed,
			&elapsedMS); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		if session.ScannedAt, err = time.Parse(time.RFC3339Nano, scannedAt); err != nil {
			return nil, fmt.Errorf("parse scanned_at %q: %w", scannedAt, err)
		}
		session.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Health aggregates library counts for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	ctx = ensureContext(ctx)
	health := HealthSummary{DBPath: s.path}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(1) FROM matches", &health.Matches},
		{"SELECT COUNT(1) FROM match_players", &health.Players},
		{"SELECT COUNT(1) FROM scan_sessions", &health.Sessions},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return health, fmt.Errorf("library health: %w", err)
		}
	}

	var lastScan *string
	if err := s.db.QueryRowContext(ctx,
		"SELECT MAX(scanned_at) FROM scan_sessions").Scan(&lastScan); err != nil {
		return health, fmt.Errorf("library health: %w", err)
	}
	if lastScan != nil {
		if t, err := time.Parse(time.RFC3339Nano, *lastScan); err == nil {
			health.LastScan = t
		}
	}
	return health, nil
}
