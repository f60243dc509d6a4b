// Package preflight checks that an encode can run before any frame is read:
// the input is readable, the output location is writable, and the decoder
// binaries are installed when the input is a video. The deps command reuses
// the same checks to print a readiness report.
package preflight
