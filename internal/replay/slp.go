package replay

import (
	"bytes"
	"encoding/binary"
)

// UBJSON framing for the .slp container. The file opens an object, declares
// "raw" as a typed uint8 array with an int32 count, and closes with a
// "metadata" map.
var rawHeader = []byte{'{', 'U', 0x03, 'r', 'a', 'w', '[', '$', 'U', '#', 'l'}

var metadataKey = []byte{'U', 0x08, 'm', 'e', 't', 'a', 'd', 'a', 't', 'a', '{'}

// Event command bytes of the raw stream.
const (
	cmdEventPayloads byte = 0x35
	cmdGameStart     byte = 0x36
	cmdPreFrame      byte = 0x37
	cmdPostFrame     byte = 0x38
	cmdGameEnd       byte = 0x39
	cmdFrameStart    byte = 0x3A
	cmdItemUpdate    byte = 0x3B
	cmdFrameBookend  byte = 0x3C
	cmdGechoList     byte = 0x3D
)

// Game Start event layout (offsets from the command byte).
const (
	gameStartVersionOff  = 0x1
	gameStartInfoBlock   = 0x5
	gameStartTeamsOff    = 0xD
	gameStartStageOff    = 0x13
	gameStartPlayerBase  = 0x65
	gameStartPlayerSize  = 0x24
	gameStartNameBase    = 0x1A5 // v3.9+: Shift-JIS display names
	gameStartNameSize    = 0x1F
	gameStartCodeBase    = 0x221 // v3.9+: Shift-JIS connect codes
	gameStartCodeSize    = 0xA
	gameStartMatchIDOff  = 0x2BE // v3.14+: match ID string
	gameStartMatchIDSize = 0x33
)

// Game End event layout.
const (
	gameEndMethodOff     = 0x1
	gameEndLRASOff       = 0x2 // v2.0+
	gameEndPlacementsOff = 0x3 // v3.13+
)

const maxPorts = 4

// formatVersion is the declared replay revision, major.minor.build.
type formatVersion struct {
	major, minor, build uint8
}

func (v formatVersion) atLeast(major, minor uint8) bool {
	if v.major != major {
		return v.major > major
	}
	return v.minor >= minor
}

// maxSupportedMajor gates parsing: revisions beyond this are reported as
// UnsupportedVersion rather than misread.
const maxSupportedMajor = 3

func hasRawHeader(data []byte) bool {
	return len(data) >= len(rawHeader) && bytes.Equal(data[:len(rawHeader)], rawHeader)
}

// rawElement returns the event stream bytes and the offset of the byte after
// them. A zero declared length (in-progress or hard-crashed recordings) makes
// the stream run until the metadata key or end of file.
func rawElement(data []byte, path string) ([]byte, int, *DecodeError) {
	headerLen := len(rawHeader) + 4
	if len(data) < headerLen {
		return nil, 0, decodeErrf(KindTruncated, path, "file shorter than raw header")
	}
	declared := int(int32(binary.BigEndian.Uint32(data[len(rawHeader):headerLen])))
	if declared < 0 {
		return nil, 0, decodeErrf(KindCorrupt, path, "negative raw length %d", declared)
	}
	if declared == 0 {
		rest := data[headerLen:]
		if idx := bytes.Index(rest, metadataKey); idx >= 0 {
			return rest[:idx], headerLen + idx, nil
		}
		return rest, len(data), nil
	}
	if len(data) < headerLen+declared {
		return nil, 0, decodeErrf(KindTruncated, path, "raw element declares %d bytes, file holds %d", declared, len(data)-headerLen)
	}
	return data[headerLen : headerLen+declared], headerLen + declared, nil
}

// payloadSizes maps command bytes to their fixed payload size (excluding the
// command byte itself), as declared by the Event Payloads event.
type payloadSizes map[byte]int

// parseEventPayloads reads the mandatory first event of the raw stream.
func parseEventPayloads(raw []byte, path string) (payloadSizes, int, *DecodeError) {
	if len(raw) < 2 {
		return nil, 0, decodeErrf(KindTruncated, path, "raw stream shorter than event payloads event")
	}
	if raw[0] != cmdEventPayloads {
		return nil, 0, decodeErrf(KindCorrupt, path, "raw stream does not open with event payloads (0x%02x)", raw[0])
	}
	size := int(raw[1])
	if size < 1 || (size-1)%3 != 0 {
		return nil, 0, decodeErrf(KindCorrupt, path, "event payloads size %d is not 1+3n", size)
	}
	if len(raw) < 1+size {
		return nil, 0, decodeErrf(KindTruncated, path, "event payloads declares %d bytes, stream holds %d", size, len(raw)-1)
	}
	sizes := make(payloadSizes, (size-1)/3)
	for off := 2; off < 1+size; off += 3 {
		cmd := raw[off]
		sizes[cmd] = int(binary.BigEndian.Uint16(raw[off+1 : off+3]))
	}
	if _, ok := sizes[cmdGameStart]; !ok {
		return nil, 0, decodeErrf(KindCorrupt, path, "event payloads does not declare game start")
	}
	return sizes, 1 + size, nil
}
