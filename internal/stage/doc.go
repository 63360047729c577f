// Package stage launches external transform processes and supervises them.
//
// Start never blocks on the child: it wires the requested endpoints, starts
// the process, and returns a Handle whose exit is observed by a background
// reaper. Wait applies a bounded timeout so a caller can classify a process
// that outlives its consumers as hung instead of blocking forever.
//
// Pipes are created with NewPipe. After a stage has been started with one end
// of a pipe, the caller must close its own copy of that end; otherwise the
// consumer never sees end-of-stream while the parent still holds the writer.
package stage
