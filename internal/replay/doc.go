// Package replay decodes Slippi .slp replay files into match records.
//
// A .slp file is a UBJSON object with two elements: "raw", a typed byte array
// holding the game's binary event stream, and "metadata", a UBJSON map the
// recorder appends after the game ends. Decoding reads the event payload
// declaration, the Game Start and Game End events, and the metadata map; the
// per-frame events in between are skipped using the declared payload sizes.
//
// Decode is a pure function of the file bytes. Errors carry a Kind so callers
// can distinguish permanent failures (corrupt or unsupported files, safe to
// remember) from transient I/O problems, which must be retried.
package replay
