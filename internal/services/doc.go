// Package services defines shared utilities consumed by the clip pipeline and
// its command-line surface.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, fingerprints, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent, stage-identified messages and process exit codes.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error classification, observability) stays uniform across stages.
package services
