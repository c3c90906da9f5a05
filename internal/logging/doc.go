// Package logging assembles the structured slog loggers used across slipscan.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so scanner, cache, and store code
// emit log lines with the same shape. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup.
package logging
