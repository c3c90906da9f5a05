// Package config loads, normalizes, and validates slipscan's TOML
// configuration. Defaults live in defaults.go; Load layers the user's file on
// top, expands home-relative paths, and rejects invalid values before any
// other component sees the config.
package config
