// Package output persists an encode.
//
// A Stage implements the encoder sink. It locks the target directory with an
// advisory file lock, writes tiles and the manifest into a hidden staging
// directory beside it, and on Commit replaces the previous output with the
// staged files. A failed encode calls Abort and leaves the target untouched.
package output
