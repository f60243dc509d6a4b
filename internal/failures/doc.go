// Package failures defines the error kinds surfaced by the encode pipeline.
//
// Components wrap their errors with one of the sentinel markers so the CLI,
// history store, and tests can classify a failure with errors.Is without
// parsing messages. None of these kinds are retried: each one means either the
// configuration is wrong or an I/O fault needs a human.
package failures
