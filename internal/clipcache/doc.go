// Package clipcache addresses reusable intermediate artifacts by fingerprint.
//
// A fingerprint digests only the request fields that change the extracted
// intermediate (source, track selectors, range, audio bitrate). Encoder
// tuning and output geometry are deliberately absent so re-encoding with new
// settings reuses the same artifact.
//
// Artifacts are written under a per-run processing name and renamed into
// place only after extraction succeeds, so the stable name never refers to a
// partial file. Exists is a pure existence check; staleness is the caller's
// concern. An optional advisory lock keyed by fingerprint serialises
// concurrent extractions of the same clip.
package clipcache
