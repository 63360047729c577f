// Package clip describes one requested clip: the source slice, track
// selection, target dimensions, and encoder tuning.
//
// Request values are immutable once validated. Validate rejects out-of-range
// tuning and unusable sources before any external process is started, tagging
// failures with the services error markers so callers can tell input problems
// from configuration problems.
package clip
