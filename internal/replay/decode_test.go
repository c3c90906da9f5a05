package replay_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"slipscan/internal/replay"
	"slipscan/internal/testsupport"
)

func decodeFixture(t *testing.T, fixture testsupport.ReplayFixture) *replay.MatchRecord {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.slp")
	testsupport.WriteReplay(t, path, fixture)
	record, err := replay.FileDecoder{}.Decode(path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return record
}

func TestDecodeFullReplay(t *testing.T) {
	record := decodeFixture(t, testsupport.ReplayFixture{
		Players: []testsupport.FixturePlayer{
			{Name: "Mango", Code: "MANG#0", Character: 20, Costume: 3},
			{Name: "Zain", Code: "ZAIN#0", Character: 9},
		},
		Stage:      8,
		Ranked:     true,
		LastFrame:  9000,
		WinnerPort: 1,
	})

	if len(record.Players) != 2 {
		t.Fatalf("players = %d", len(record.Players))
	}
	p0, p1 := record.Players[0], record.Players[1]
	if p0.NetplayName != "Mango" || p0.ConnectCode != "MANG#0" {
		t.Fatalf("player 0 identity = %q/%q", p0.NetplayName, p0.ConnectCode)
	}
	if p0.CharacterName() != "Falco" || p0.Costume != 3 {
		t.Fatalf("player 0 character = %q costume %d", p0.CharacterName(), p0.Costume)
	}
	if p1.CharacterName() != "Marth" {
		t.Fatalf("player 1 character = %q", p1.CharacterName())
	}
	if record.StageID != 8 || record.StageName() != "Yoshi's Story" {
		t.Fatalf("stage = %d %q", record.StageID, record.StageName())
	}
	if !record.IsRanked {
		t.Fatal("ranked match not flagged")
	}
	if record.IsTeams || record.HasCPU {
		t.Fatal("unexpected teams/cpu flags")
	}
	if record.DurationFrames != 9000+124 {
		t.Fatalf("duration = %d", record.DurationFrames)
	}
	if record.StartTime.IsZero() || record.StartTime.Location() != time.UTC {
		t.Fatalf("start time = %v", record.StartTime)
	}
	if record.WinnerPort != 1 {
		t.Fatalf("winner port = %d", record.WinnerPort)
	}
	if got := record.ResultFor("ZAIN#0"); got != replay.ResultWin {
		t.Fatalf("ResultFor(winner) = %q", got)
	}
	if got := record.ResultFor("MANG#0"); got != replay.ResultLoss {
		t.Fatalf("ResultFor(loser) = %q", got)
	}
	if got := record.ResultFor("ABSENT#9"); got != replay.ResultUnknown {
		t.Fatalf("ResultFor(absent) = %q", got)
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.slp")
	testsupport.WriteReplay(t, path, testsupport.ReplayFixture{})

	first, err := replay.FileDecoder{}.Decode(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := replay.FileDecoder{}.Decode(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflectEqualRecords(first, second) {
		t.Fatalf("repeated decode differs:\n%+v\n%+v", first, second)
	}
}

func reflectEqualRecords(a, b *replay.MatchRecord) bool {
	if a.SourcePath != b.SourcePath || a.StageID != b.StageID ||
		!a.StartTime.Equal(b.StartTime) || a.DurationFrames != b.DurationFrames ||
		a.WinnerPort != b.WinnerPort || a.EndMethod != b.EndMethod ||
		len(a.Players) != len(b.Players) {
		return false
	}
	for i := range a.Players {
		if a.Players[i] != b.Players[i] {
			return false
		}
	}
	return true
}

func TestDecodeOldRevisionFallsBackToMetadataNames(t *testing.T) {
	record := decodeFixture(t, testsupport.ReplayFixture{
		Version: [3]uint8{2, 0, 0},
		Players: []testsupport.FixturePlayer{
			{Name: "Old One", Code: "OLDO#1", Character: 0},
			{Name: "Old Two", Code: "OLDT#2", Character: 1},
		},
	})

	if record.Players[0].ConnectCode != "OLDO#1" {
		t.Fatalf("metadata code not applied: %q", record.Players[0].ConnectCode)
	}
	if record.Players[1].NetplayName != "Old Two" {
		t.Fatalf("metadata name not applied: %q", record.Players[1].NetplayName)
	}
	if record.IsRanked {
		t.Fatal("pre-3.14 replay cannot be flagged ranked")
	}
}

func TestDecodeCPUOpponent(t *testing.T) {
	record := decodeFixture(t, testsupport.ReplayFixture{
		Players: []testsupport.FixturePlayer{
			{Name: "Human", Code: "HUMN#1", Character: 2},
			{Character: 12, CPU: true},
		},
	})
	if !record.HasCPU {
		t.Fatal("CPU player not flagged")
	}
	if !record.Players[1].IsCPU {
		t.Fatal("port 1 should be CPU")
	}
}

func TestDecodeNoContest(t *testing.T) {
	record := decodeFixture(t, testsupport.ReplayFixture{
		EndMethod: 7,
		LRAS:      0,
	})
	if got := record.ResultFor("ALPH#001"); got != replay.ResultNoContest {
		t.Fatalf("ResultFor = %q, want no_contest", got)
	}
}

func TestDecodeMissingGameEnd(t *testing.T) {
	record := decodeFixture(t, testsupport.ReplayFixture{
		OmitGameEnd: true,
		FrameStarts: 600,
	})
	if record.EndMethod != -1 || record.WinnerPort != -1 {
		t.Fatalf("end method %d winner %d for crash replay", record.EndMethod, record.WinnerPort)
	}
	if got := record.ResultFor("ALPH#001"); got != replay.ResultUnknown {
		t.Fatalf("ResultFor = %q, want unknown", got)
	}
}

func TestDecodeWithoutMetadataCountsFrames(t *testing.T) {
	record := decodeFixture(t, testsupport.ReplayFixture{
		OmitMetadata: true,
		FrameStarts:  600,
	})
	if record.DurationFrames != 600 {
		t.Fatalf("duration fallback = %d, want 600", record.DurationFrames)
	}
	if !record.StartTime.IsZero() {
		t.Fatalf("start time should be zero without metadata, got %v", record.StartTime)
	}
}

func TestDecodeNotAReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.slp")
	if err := os.WriteFile(path, []byte("definitely not a replay"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := replay.FileDecoder{}.Decode(path)
	var de *replay.DecodeError
	if !errors.As(err, &de) || de.Kind != replay.KindNotAReplayFile {
		t.Fatalf("err = %v, want NotAReplayFile", err)
	}
	if !de.Kind.Cacheable() {
		t.Fatal("bad magic should be a cacheable failure")
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := testsupport.ReplayBytes(t, testsupport.ReplayFixture{})
	path := filepath.Join(t.TempDir(), "cut.slp")
	if err := os.WriteFile(path, data[:len(data)/2], 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := replay.FileDecoder{}.Decode(path)
	var de *replay.DecodeError
	if !errors.As(err, &de) || de.Kind != replay.KindTruncated {
		t.Fatalf("err = %v, want Truncated", err)
	}
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	data := testsupport.ReplayBytes(t, testsupport.ReplayFixture{Version: [3]uint8{9, 0, 0}})
	path := filepath.Join(t.TempDir(), "future.slp")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := replay.FileDecoder{}.Decode(path)
	var de *replay.DecodeError
	if !errors.As(err, &de) || de.Kind != replay.KindUnsupportedVersion {
		t.Fatalf("err = %v, want UnsupportedVersion", err)
	}
	if !de.Kind.Cacheable() {
		t.Fatal("unsupported version should be a cacheable failure")
	}
}

func TestDecodeCorruptEventStream(t *testing.T) {
	data := testsupport.ReplayBytes(t, testsupport.ReplayFixture{})
	// Swap the Game Start command byte for an undeclared command.
	idx := bytes.IndexByte(data[15:], 0x36)
	if idx < 0 {
		t.Fatal("fixture has no game start byte")
	}
	data[15+idx] = 0x7F

	_, err := replay.DecodeBytes("/tmp/corrupt.slp", data)
	var de *replay.DecodeError
	if !errors.As(err, &de) || de.Kind != replay.KindCorrupt {
		t.Fatalf("err = %v, want Corrupt", err)
	}
}

func TestDecodeMissingFileIsIoFailure(t *testing.T) {
	_, err := replay.FileDecoder{}.Decode(filepath.Join(t.TempDir(), "absent.slp"))
	var de *replay.DecodeError
	if !errors.As(err, &de) || de.Kind != replay.KindIoFailure {
		t.Fatalf("err = %v, want IoFailure", err)
	}
	if de.Kind.Cacheable() {
		t.Fatal("io failures must never be cacheable")
	}
}

func TestFullWidthHashNormalized(t *testing.T) {
	data := testsupport.ReplayBytes(t, testsupport.ReplayFixture{
		Players: []testsupport.FixturePlayer{
			{Name: "A", Code: "AAAA#1"},
			{Name: "B", Code: "BBBB#2"},
		},
	})
	// Replace port 0's ASCII '#' with the Shift-JIS full-width form the game
	// actually records.
	// header(15) + event payloads event(11) + game start offset of port 0 code
	codeOff := 15 + 11 + 0x221
	if data[codeOff+4] != '#' {
		t.Fatalf("fixture layout changed, byte = %q", data[codeOff+4])
	}
	code := append([]byte("AAAA"), 0x81, 0x94, '1', 0x00)
	copy(data[codeOff:], code)

	record, err := replay.DecodeBytes("/tmp/fullwidth.slp", data)
	if err != nil {
		t.Fatal(err)
	}
	if record.Players[0].ConnectCode != "AAAA#1" {
		t.Fatalf("connect code = %q", record.Players[0].ConnectCode)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		frames int32
		want   string
	}{
		{0, "0:00"},
		{59, "0:00"},
		{60, "0:01"},
		{3600, "1:00"},
		{28800, "8:00"},
		{-5, "0:00"},
	}
	for _, tc := range cases {
		if got := replay.FormatDuration(tc.frames); got != tc.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tc.frames, got, tc.want)
		}
	}
}
