// Package tools builds the command lines for the external media tools.
//
// Builders are pure: they take the request, probed descriptor, and resolved
// geometry and return argument slices without the binary name. Versions runs
// the tools' version commands concurrently for the output metadata.
package tools
