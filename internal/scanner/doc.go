// Package scanner discovers replay files under a root directory and decodes
// them with a bounded worker pool. Discovery streams: a walker goroutine
// feeds paths to workers as they are found, so decoding starts before the
// walk finishes. A scan cache, when configured, lets unchanged files skip
// decoding entirely.
package scanner
