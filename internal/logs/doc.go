// Package logs reads the whitewater log file for the logs command: the last N
// lines, optionally filtered to one encode run, and follow mode that polls for
// appended lines.
package logs
