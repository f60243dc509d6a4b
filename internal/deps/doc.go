// Package deps reports whether the external binaries whitewater shells out
// to are installed, with their version line when available.
package deps
