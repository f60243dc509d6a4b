// Package history records encode runs in a SQLite database under the state
// directory. Each run gets a UUID that also tags its log lines, and ends up
// succeeded with output figures or failed with the error kind and message.
package history
