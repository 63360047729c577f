// Package history persists a record of each clip run in SQLite.
//
// The store is informational: the coordinator records terminal runs so
// `av1clip history` can show what was produced, which runs hit the cache, and
// which stage failed. A history write failure never changes a run's outcome.
package history
