// Package scancache persists decode results between scans so unchanged
// replay files are never re-parsed. Files are identified by a size plus
// modification-time fingerprint; decode failures whose cause is stable for
// unchanged bytes are remembered as tombstones. The cache file is JSON,
// replaced atomically, and safely rebuildable: a missing or corrupt file
// just means a cold rescan.
package scancache
