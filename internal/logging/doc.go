// Package logging assembles the slog loggers used by whitewater.
//
// New and NewFromConfig build either a compact console handler or a JSON
// handler and fan output to stderr and the configured log file. The package
// also defines the standard field names, context helpers that carry the run
// identifier, and a sampler that keeps frame progress logs readable.
package logging
