package replay

import (
	"errors"
	"fmt"
)

// ErrorKind classifies decode failures.
type ErrorKind string

const (
	// KindNotAReplayFile means the file does not carry the .slp magic header.
	KindNotAReplayFile ErrorKind = "not_a_replay"
	// KindUnsupportedVersion means the file is a replay of a format revision
	// this decoder does not handle.
	KindUnsupportedVersion ErrorKind = "unsupported_version"
	// KindTruncated means the file is shorter than its declared payload.
	KindTruncated ErrorKind = "truncated"
	// KindCorrupt means the event stream or metadata is structurally invalid.
	KindCorrupt ErrorKind = "corrupt"
	// KindIoFailure means the file could not be read at all.
	KindIoFailure ErrorKind = "io_failure"
)

// Cacheable reports whether a failure of this kind is stable for unchanged
// file bytes. I/O failures may be transient and must never be remembered.
func (k ErrorKind) Cacheable() bool {
	return k != KindIoFailure && k != ""
}

// DecodeError describes why a file could not be decoded.
type DecodeError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("decode %s: %s", e.Path, e.Kind)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(kind ErrorKind, path string, err error) *DecodeError {
	return &DecodeError{Kind: kind, Path: path, Err: err}
}

func decodeErrf(kind ErrorKind, path, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the error kind from err, defaulting to KindIoFailure for
// errors that did not come out of the decoder.
func KindOf(err error) ErrorKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindIoFailure
}
