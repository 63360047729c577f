// Package preflight provides readiness checks for the external tools and
// filesystem paths av1clip depends on.
//
// These checks run in two contexts:
//   - `av1clip clip` calls RunAll before starting a run and refuses to start
//     when a required check fails, so no process is launched against an
//     unwritable cache.
//   - `av1clip check` prints every result, including tool versions.
package preflight
