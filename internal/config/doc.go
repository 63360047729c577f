// Package config loads, normalizes, and validates av1clip configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AV1CLIP_CACHE_DIR. The Config type carries every knob the pipeline needs:
// tool binaries, encode defaults, cache placement, and the grace period used
// when joining pipeline stages. It is passed explicitly to the pipeline
// coordinator; nothing in the repository reads process-wide mutable state.
package config
