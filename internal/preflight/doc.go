// Package preflight runs environment checks surfaced by the doctor command:
// directory access, disk space, and optional rank endpoint reachability.
package preflight
