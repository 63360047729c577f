// Package main hosts the av1clip CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into clip runs on the
// pipeline coordinator, cache and history maintenance, dependency checks, and
// configuration scaffolding. It resolves configuration and logging once so
// subcommands only deal with flags and output.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// surfaced here through flags and rendering.
package main
