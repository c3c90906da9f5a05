package testsupport

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"
	"time"
)

// FixturePlayer describes one occupied port of a synthetic replay.
type FixturePlayer struct {
	Name      string
	Code      string
	Character uint8
	Costume   uint8
	CPU       bool
}

// ReplayFixture describes a synthetic .slp file. Zero values produce a valid
// two-human singles game on Battlefield won by port 0.
type ReplayFixture struct {
	Players      []FixturePlayer
	Stage        uint16
	Version      [3]uint8
	Teams        bool
	Ranked       bool
	StartAt      time.Time
	LastFrame    int32
	WinnerPort   int
	EndMethod    uint8
	LRAS         int8
	OmitGameEnd  bool
	OmitMetadata bool
	FrameStarts  int
}

const (
	fixtureGameStartSize  = 0x360
	fixtureGameEndSize    = 6
	fixtureFrameStartSize = 8
)

func (f ReplayFixture) withDefaults() ReplayFixture {
	if len(f.Players) == 0 {
		f.Players = []FixturePlayer{
			{Name: "Alpha", Code: "ALPH#001", Character: 2},
			{Name: "Beta", Code: "BETA#002", Character: 9},
		}
	}
	if f.Stage == 0 {
		f.Stage = 31
	}
	if f.Version == [3]uint8{} {
		f.Version = [3]uint8{3, 16, 0}
	}
	if f.StartAt.IsZero() {
		f.StartAt = time.Date(2026, 5, 14, 20, 30, 0, 0, time.UTC)
	}
	if f.LastFrame == 0 {
		f.LastFrame = 7200
	}
	if f.EndMethod == 0 {
		f.EndMethod = 2 // GAME!
	}
	if f.LRAS == 0 {
		f.LRAS = -1
	}
	return f
}

// ReplayBytes builds the full .slp byte stream for the fixture.
func ReplayBytes(t testing.TB, fixture ReplayFixture) []byte {
	t.Helper()
	f := fixture.withDefaults()
	if len(f.Players) > 4 {
		t.Fatalf("fixture supports at most 4 players, got %d", len(f.Players))
	}

	var raw bytes.Buffer

	// Event Payloads
	commands := [][3]byte{}
	addCmd := func(cmd byte, size uint16) {
		var entry [3]byte
		entry[0] = cmd
		binary.BigEndian.PutUint16(entry[1:], size)
		commands = append(commands, entry)
	}
	addCmd(0x36, fixtureGameStartSize)
	addCmd(0x39, fixtureGameEndSize)
	addCmd(0x3A, fixtureFrameStartSize)
	raw.WriteByte(0x35)
	raw.WriteByte(byte(1 + 3*len(commands)))
	for _, entry := range commands {
		raw.Write(entry[:])
	}

	// Game Start
	start := make([]byte, 1+fixtureGameStartSize)
	start[0] = 0x36
	start[1] = f.Version[0]
	start[2] = f.Version[1]
	start[3] = f.Version[2]
	if f.Teams {
		start[0xD] = 1
	}
	binary.BigEndian.PutUint16(start[0x13:], f.Stage)
	for port := 0; port < 4; port++ {
		base := 0x65 + port*0x24
		if port < len(f.Players) {
			p := f.Players[port]
			start[base] = p.Character
			if p.CPU {
				start[base+1] = 1
			} else {
				start[base+1] = 0
			}
			start[base+3] = p.Costume
			copy(start[0x1A5+port*0x1F:], p.Name)
			copy(start[0x221+port*0xA:], p.Code)
		} else {
			start[base+1] = 3 // empty port
		}
	}
	matchID := "mode.unranked-2026-05-14T20:30:00.00-0"
	if f.Ranked {
		matchID = "mode.ranked-2026-05-14T20:30:00.00-0"
	}
	copy(start[0x2BE:], matchID)
	raw.Write(start)

	// Frame Starts (optional filler so byte offsets stay realistic)
	for i := 0; i < f.FrameStarts; i++ {
		frame := make([]byte, 1+fixtureFrameStartSize)
		frame[0] = 0x3A
		binary.BigEndian.PutUint32(frame[1:], uint32(int32(i)-123))
		raw.Write(frame)
	}

	// Game End
	if !f.OmitGameEnd {
		end := make([]byte, 1+fixtureGameEndSize)
		end[0] = 0x39
		end[1] = f.EndMethod
		end[2] = byte(f.LRAS)
		for port := 0; port < 4; port++ {
			placement := int8(-1)
			if port < len(f.Players) {
				if port == f.WinnerPort {
					placement = 0
				} else {
					placement = 1
				}
			}
			end[3+port] = byte(placement)
		}
		raw.Write(end)
	}

	var file bytes.Buffer
	file.Write([]byte{'{', 'U', 0x03, 'r', 'a', 'w', '[', '$', 'U', '#', 'l'})
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(raw.Len()))
	file.Write(length[:])
	file.Write(raw.Bytes())

	if !f.OmitMetadata {
		writeMetadata(&file, f)
	}
	file.WriteByte('}')

	return file.Bytes()
}

// WriteReplay writes a synthetic replay to path.
func WriteReplay(t testing.TB, path string, fixture ReplayFixture) {
	t.Helper()
	if err := os.WriteFile(path, ReplayBytes(t, fixture), 0o644); err != nil {
		t.Fatalf("write replay fixture %s: %v", path, err)
	}
}

func writeMetadata(file *bytes.Buffer, f ReplayFixture) {
	writeKey := func(key string) {
		file.WriteByte('U')
		file.WriteByte(byte(len(key)))
		file.WriteString(key)
	}
	writeString := func(value string) {
		file.WriteByte('S')
		file.WriteByte('U')
		file.WriteByte(byte(len(value)))
		file.WriteString(value)
	}
	writeInt32 := func(value int32) {
		file.WriteByte('l')
		var raw [4]byte
		binary.BigEndian.PutUint32(raw[:], uint32(value))
		file.Write(raw[:])
	}

	writeKey("metadata")
	file.WriteByte('{')

	writeKey("startAt")
	writeString(f.StartAt.UTC().Format("2006-01-02T15:04:05Z"))

	writeKey("lastFrame")
	writeInt32(f.LastFrame)

	writeKey("players")
	file.WriteByte('{')
	for port, p := range f.Players {
		writeKey(string(rune('0' + port)))
		file.WriteByte('{')
		writeKey("names")
		file.WriteByte('{')
		writeKey("netplay")
		writeString(p.Name)
		writeKey("code")
		writeString(p.Code)
		file.WriteByte('}')
		file.WriteByte('}')
	}
	file.WriteByte('}')

	writeKey("playedOn")
	writeString("dolphin")

	file.WriteByte('}')
}
