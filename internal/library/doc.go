// Package library persists decoded matches to SQLite so history and player
// queries work across sessions without rescanning the replay directory.
package library
