package replay

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// ubjsonMap is the decoded form of the metadata element. Only the value
// shapes the recorder emits are supported: maps, strings, integers, floats,
// booleans, and untyped arrays.
type ubjsonMap struct {
	entries map[string]any
}

func (m *ubjsonMap) stringValue(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m.entries[key].(string)
	return s, ok
}

func (m *ubjsonMap) intValue(key string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m.entries[key].(int64)
	return v, ok
}

func (m *ubjsonMap) mapValue(key string) (*ubjsonMap, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.entries[key].(*ubjsonMap)
	return v, ok
}

// parseMetadata decodes the metadata element starting at offset. Replays cut
// short by a crash have no metadata at all; that is not an error.
func parseMetadata(data []byte, offset int, path string) (*ubjsonMap, *DecodeError) {
	rest := data[offset:]
	if len(rest) == 0 || !bytes.HasPrefix(rest, metadataKey) {
		return nil, nil
	}

	r := &ubjsonReader{data: rest, pos: len(metadataKey)}
	meta, err := r.readMapBody()
	if err != nil {
		return nil, decodeErrf(KindCorrupt, path, "metadata: %v", err)
	}
	return meta, nil
}

type ubjsonReader struct {
	data []byte
	pos  int
}

func (r *ubjsonReader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("unexpected end at offset %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *ubjsonReader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, fmt.Errorf("unexpected end at offset %d (want %d bytes)", r.pos, n)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// readLength reads a UBJSON length value (uint8 or int32 form).
func (r *ubjsonReader) readLength() (int, error) {
	marker, err := r.byte()
	if err != nil {
		return 0, err
	}
	switch marker {
	case 'U':
		b, err := r.byte()
		return int(b), err
	case 'l':
		raw, err := r.take(4)
		if err != nil {
			return 0, err
		}
		return int(int32(binary.BigEndian.Uint32(raw))), nil
	default:
		return 0, fmt.Errorf("unsupported length marker 0x%02x", marker)
	}
}

func (r *ubjsonReader) readKey() (string, error) {
	n, err := r.readLength()
	if err != nil {
		return "", err
	}
	raw, err := r.take(n)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// readMapBody consumes entries after an already-consumed '{'.
func (r *ubjsonReader) readMapBody() (*ubjsonMap, error) {
	m := &ubjsonMap{entries: make(map[string]any)}
	for {
		if r.pos < len(r.data) && r.data[r.pos] == '}' {
			r.pos++
			return m, nil
		}
		key, err := r.readKey()
		if err != nil {
			return nil, err
		}
		value, err := r.readValue()
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		m.entries[key] = value
	}
}

func (r *ubjsonReader) readValue() (any, error) {
	marker, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch marker {
	case '{':
		return r.readMapBody()
	case 'S':
		n, err := r.readLength()
		if err != nil {
			return nil, err
		}
		raw, err := r.take(n)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	case 'i':
		b, err := r.byte()
		return int64(int8(b)), err
	case 'U':
		b, err := r.byte()
		return int64(b), err
	case 'I':
		raw, err := r.take(2)
		if err != nil {
			return nil, err
		}
		return int64(int16(binary.BigEndian.Uint16(raw))), nil
	case 'l':
		raw, err := r.take(4)
		if err != nil {
			return nil, err
		}
		return int64(int32(binary.BigEndian.Uint32(raw))), nil
	case 'L':
		raw, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return int64(binary.BigEndian.Uint64(raw)), nil
	case 'd':
		raw, err := r.take(4)
		if err != nil {
			return nil, err
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(raw))), nil
	case 'D':
		raw, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(raw)), nil
	case 'T':
		return true, nil
	case 'F':
		return false, nil
	case 'Z':
		return nil, nil
	case '[':
		var items []any
		for {
			if r.pos < len(r.data) && r.data[r.pos] == ']' {
				r.pos++
				return items, nil
			}
			item, err := r.readValue()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	default:
		return nil, fmt.Errorf("unsupported value marker 0x%02x", marker)
	}
}
