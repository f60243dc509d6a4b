package output

// SetMoveFile replaces the function Commit uses to move staged files into
// place and returns a func that restores it.
func SetMoveFile(fn func(src, dst string) error) func() {
	prev := moveFile
	moveFile = fn
	return func() { moveFile = prev }
}
