package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"slipscan/internal/replay"
)

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func formatPlayer(p replay.PlayerEntry) string {
	name := strings.TrimSpace(p.NetplayName)
	if name == "" {
		name = strings.TrimSpace(p.ConnectCode)
	}
	if name == "" {
		if p.IsCPU {
			return fmt.Sprintf("CPU (%s)", p.CharacterName())
		}
		name = fmt.Sprintf("P%d", p.Port+1)
	}
	return fmt.Sprintf("%s (%s)", name, p.CharacterName())
}

func formatMatchup(record *replay.MatchRecord) string {
	parts := make([]string, 0, len(record.Players))
	for _, p := range record.Players {
		parts = append(parts, formatPlayer(p))
	}
	return strings.Join(parts, " vs ")
}

func formatResult(record *replay.MatchRecord, subjectCode string) string {
	if subjectCode == "" {
		return "-"
	}
	switch record.ResultFor(subjectCode) {
	case replay.ResultWin:
		return "Win"
	case replay.ResultLoss:
		return "Loss"
	case replay.ResultNoContest:
		return "No contest"
	default:
		return "-"
	}
}

func formatStartTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// formatMatchAge renders a start time as a day-granular relative age for the
// match table, where "Today" reads better than a timestamp.
func formatMatchAge(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	elapsed := now.Sub(t)
	if elapsed < 0 {
		elapsed = 0
	}
	days := int(elapsed.Hours() / 24)
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "1 day ago"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		if weeks := days / 7; weeks > 1 {
			return fmt.Sprintf("%d weeks ago", weeks)
		}
		return "1 week ago"
	default:
		if months := days / 30; months > 1 {
			return fmt.Sprintf("%d months ago", months)
		}
		return "1 month ago"
	}
}

// renderMatchTable renders records as rows of age, matchup, stage, duration
// and (when a subject code is configured) the result column.
func renderMatchTable(records []*replay.MatchRecord, subjectCode string) string {
	headers := []string{"Played", "Matchup", "Stage", "Length"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}
	if subjectCode != "" {
		headers = append(headers, "Result")
		aligns = append(aligns, alignLeft)
	}

	now := time.Now()
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		row := []string{
			formatMatchAge(record.StartTime, now),
			formatMatchup(record),
			record.StageName(),
			replay.FormatDuration(record.DurationFrames),
		}
		if subjectCode != "" {
			row = append(row, formatResult(record, subjectCode))
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows, aligns)
}
