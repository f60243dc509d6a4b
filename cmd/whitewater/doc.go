// Package main is the whitewater command line.
//
// The cobra command tree loads configuration once per invocation, applies
// flag overrides for encode, and hands off to the internal packages: source
// for frame decoding, encoder for diffing and packing, output for staging and
// committing files, and history for the run database.
package main
