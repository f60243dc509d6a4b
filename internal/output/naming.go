package output

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// sequenceSuffix keeps the output of a directory input from landing inside
// or on top of the input itself.
const sequenceSuffix = "_whitewater"

// DefaultDir derives the output directory for input. The name is the input's
// base name without extension, made ASCII-safe. root, when set, replaces the
// input's own parent directory.
func DefaultDir(input, root string, inputIsDir bool) string {
	input = filepath.Clean(input)
	base := filepath.Base(input)
	if !inputIsDir {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	name := SafeName(base)
	if inputIsDir {
		name += sequenceSuffix
	}
	parent := filepath.Dir(input)
	if strings.TrimSpace(root) != "" {
		parent = root
	}
	return filepath.Join(parent, name)
}

// SafeName folds accents to their base letters and replaces everything
// outside [A-Za-z0-9._-] with underscores, collapsing runs. An empty result
// becomes "output".
func SafeName(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-'):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_.")
	if out == "" {
		return "output"
	}
	return out
}
