// Package logging assembles structured slog loggers and formatting helpers used
// across av1clip.
//
// It owns the console/JSON handler pair, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code automatically tags log
// lines with run IDs, fingerprints, and stage names. A no-op logger is provided
// for tests and wiring code that cannot fail.
package logging
