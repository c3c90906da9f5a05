package replay

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding/japanese"
)

// framesBeforeZero is the countdown offset: frame indices start at -123, so a
// game whose last frame is N ran N+124 frames in total.
const framesBeforeZero = 124

// Decoder turns replay files into match records. The scanner depends on this
// interface so tests can count or stub decode calls.
type Decoder interface {
	Decode(path string) (*MatchRecord, error)
}

// FileDecoder is the production Decoder reading .slp files from disk.
type FileDecoder struct{}

// Decode parses the replay file at path. The returned error is always a
// *DecodeError.
func (FileDecoder) Decode(path string) (*MatchRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, decodeErr(KindIoFailure, path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, decodeErr(KindIoFailure, path, err)
	}
	return DecodeBytes(abs, data)
}

// DecodeBytes parses replay bytes already in memory. sourcePath is recorded
// on the result and used in error messages.
func DecodeBytes(sourcePath string, data []byte) (*MatchRecord, error) {
	if !hasRawHeader(data) {
		return nil, decodeErrf(KindNotAReplayFile, sourcePath, "missing raw header")
	}

	raw, metaStart, derr := rawElement(data, sourcePath)
	if derr != nil {
		return nil, derr
	}

	sizes, offset, derr := parseEventPayloads(raw, sourcePath)
	if derr != nil {
		return nil, derr
	}

	record := &MatchRecord{
		SourcePath: sourcePath,
		WinnerPort: -1,
		EndMethod:  -1,
	}

	var (
		sawGameStart bool
		frameStarts  int32
	)
	for offset < len(raw) {
		cmd := raw[offset]
		size, known := sizes[cmd]
		if !known {
			// An undeclared command means the stream is desynced; real files
			// declare every command they emit.
			return nil, decodeErrf(KindCorrupt, sourcePath, "undeclared event 0x%02x at offset %d", cmd, offset)
		}
		if offset+1+size > len(raw) {
			return nil, decodeErrf(KindTruncated, sourcePath, "event 0x%02x at offset %d runs past raw element", cmd, offset)
		}
		event := raw[offset : offset+1+size]

		switch cmd {
		case cmdGameStart:
			if err := parseGameStart(record, event, sourcePath); err != nil {
				return nil, err
			}
			sawGameStart = true
		case cmdGameEnd:
			parseGameEnd(record, event)
		case cmdFrameStart:
			frameStarts++
		}
		offset += 1 + size
	}

	if !sawGameStart {
		return nil, decodeErrf(KindCorrupt, sourcePath, "raw stream has no game start event")
	}

	meta, derr := parseMetadata(data, metaStart, sourcePath)
	if derr != nil {
		return nil, derr
	}
	applyMetadata(record, meta, frameStarts)

	return record, nil
}

func parseGameStart(record *MatchRecord, event []byte, path string) *DecodeError {
	if len(event) < gameStartPlayerBase+maxPorts*gameStartPlayerSize {
		return decodeErrf(KindTruncated, path, "game start event is %d bytes", len(event))
	}

	version := formatVersion{
		major: event[gameStartVersionOff],
		minor: event[gameStartVersionOff+1],
		build: event[gameStartVersionOff+2],
	}
	if version.major > maxSupportedMajor {
		return decodeErrf(KindUnsupportedVersion, path, "format revision %d.%d.%d is newer than supported %d.x",
			version.major, version.minor, version.build, maxSupportedMajor)
	}

	record.IsTeams = event[gameStartTeamsOff] != 0
	record.StageID = binary.BigEndian.Uint16(event[gameStartStageOff : gameStartStageOff+2])

	for port := 0; port < maxPorts; port++ {
		base := gameStartPlayerBase + port*gameStartPlayerSize
		playerType := event[base+1]
		if playerType == playerTypeEmpty {
			continue
		}
		entry := PlayerEntry{
			Port:        port,
			CharacterID: event[base],
			Costume:     event[base+3],
			IsCPU:       playerType == playerTypeCPU,
		}
		if entry.IsCPU {
			record.HasCPU = true
		}
		if version.atLeast(3, 9) {
			entry.NetplayName = shiftJISField(event, gameStartNameBase+port*gameStartNameSize, gameStartNameSize)
			entry.ConnectCode = normalizeConnectCode(shiftJISField(event, gameStartCodeBase+port*gameStartCodeSize, gameStartCodeSize))
		}
		record.Players = append(record.Players, entry)
	}

	if len(record.Players) == 0 {
		return decodeErrf(KindCorrupt, path, "game start declares no occupied ports")
	}

	if version.atLeast(3, 14) {
		matchID := asciiField(event, gameStartMatchIDOff, gameStartMatchIDSize)
		record.IsRanked = strings.HasPrefix(matchID, "mode.ranked")
	}
	return nil
}

func parseGameEnd(record *MatchRecord, event []byte) {
	if len(event) <= gameEndMethodOff {
		return
	}
	record.EndMethod = int8(event[gameEndMethodOff])

	if len(event) > gameEndPlacementsOff+maxPorts-1 {
		// v3.13+: placement 0 marks the winner.
		for port := 0; port < maxPorts; port++ {
			if int8(event[gameEndPlacementsOff+port]) == 0 {
				if _, occupied := playerAtPort(record, port); occupied {
					record.WinnerPort = int8(port)
					break
				}
			}
		}
	}
}

func playerAtPort(record *MatchRecord, port int) (PlayerEntry, bool) {
	for _, p := range record.Players {
		if p.Port == port {
			return p, true
		}
	}
	return PlayerEntry{}, false
}

func applyMetadata(record *MatchRecord, meta *ubjsonMap, frameStarts int32) {
	lastFrame := int32(-1)
	haveLastFrame := false
	if meta != nil {
		if raw, ok := meta.stringValue("startAt"); ok {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				record.StartTime = ts.UTC()
			}
		}
		if v, ok := meta.intValue("lastFrame"); ok {
			lastFrame = int32(v)
			haveLastFrame = true
		}
		applyMetadataNames(record, meta)
	}

	switch {
	case haveLastFrame:
		record.DurationFrames = lastFrame + framesBeforeZero
	case frameStarts > 0:
		record.DurationFrames = frameStarts
	}
	if record.DurationFrames < 0 {
		record.DurationFrames = 0
	}
}

// applyMetadataNames fills identity fields missing from older Game Start
// revisions using the metadata player map.
func applyMetadataNames(record *MatchRecord, meta *ubjsonMap) {
	players, ok := meta.mapValue("players")
	if !ok {
		return
	}
	for i := range record.Players {
		entry := &record.Players[i]
		portMap, ok := players.mapValue(fmt.Sprintf("%d", entry.Port))
		if !ok {
			continue
		}
		names, ok := portMap.mapValue("names")
		if !ok {
			continue
		}
		if entry.NetplayName == "" {
			if name, ok := names.stringValue("netplay"); ok {
				entry.NetplayName = name
			}
		}
		if entry.ConnectCode == "" {
			if code, ok := names.stringValue("code"); ok {
				entry.ConnectCode = normalizeConnectCode(code)
			}
		}
	}
}

// shiftJISField decodes a fixed-size null-terminated Shift-JIS field.
func shiftJISField(event []byte, offset, size int) string {
	if offset+size > len(event) {
		return ""
	}
	field := event[offset : offset+size]
	if idx := bytes.IndexByte(field, 0); idx >= 0 {
		field = field[:idx]
	}
	if len(field) == 0 {
		return ""
	}
	decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(field)
	if err != nil {
		// Keep whatever decodes as ASCII rather than dropping the name.
		return strings.TrimSpace(string(field))
	}
	return strings.TrimSpace(string(decoded))
}

func asciiField(event []byte, offset, size int) string {
	if offset+size > len(event) {
		return ""
	}
	field := event[offset : offset+size]
	if idx := bytes.IndexByte(field, 0); idx >= 0 {
		field = field[:idx]
	}
	return string(field)
}

// normalizeConnectCode folds the full-width '＃' the game records into the
// ASCII form players type.
func normalizeConnectCode(code string) string {
	code = strings.ReplaceAll(code, "＃", "#")
	return strings.ToUpper(strings.TrimSpace(code))
}
