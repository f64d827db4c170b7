package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxNameBytes keeps names well below NAME_MAX (255) so the lock file
// ".<name>.lock" still fits.
const maxNameBytes = 200

var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName turns name into a single safe path component. Path
// separators, colons and asterisks become dashes, other reserved characters
// and control characters are dropped, runs of whitespace collapse to one
// space, and leading dots are removed so the result is never hidden, "." or
// "..". Returns "" when nothing usable is left.
func SanitizeFileName(name string) string {
	name = fileNameReplacer.Replace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")
	name = strings.TrimLeft(name, ". ")
	if len(name) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = strings.TrimSpace(name[:cut])
	}
	return name
}
