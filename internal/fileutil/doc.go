// Package fileutil holds file copy and move helpers used when committing
// staged output.
package fileutil
