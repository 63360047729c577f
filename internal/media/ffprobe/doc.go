// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties
//   - StreamDescriptor: the video geometry and timing the encoder needs
//   - Rational: numerator/denominator pairs such as frame rate and SAR
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
package ffprobe
