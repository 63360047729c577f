// Package pipeline sequences one clip run.
//
// A run moves through Idle, Extracting, Probing, Resolving, and
// EncodingAndMuxing to a terminal Succeeded or Failed state. Extraction is
// skipped when the fingerprint cache already holds the intermediate. The
// encode phase starts three pipe-connected stages (frames, encode, mux)
// before waiting on any of them, then joins them: the muxer is waited without
// bound, and the upstream stages get a grace period after it exits before they
// are classified as hung. Every handle is waited on regardless of outcome.
//
// Nothing is retried. A failed extraction leaves no cache entry; a failed
// encode or mux keeps the intermediate so a rerun skips extraction.
package pipeline
