package textutil

import (
	"strings"
	"unicode"
)

var unsafeNameReplacer = strings.NewReplacer(
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

// SanitizeStem makes a file name stem safe for the staging directory and
// object keys. Path separators and shell-hostile characters become dashes
// or vanish, control characters are dropped, and surrounding dots and
// spaces are trimmed. An empty result means nothing usable remained.
func SanitizeStem(stem string) string {
	stem = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, stem)
	stem = unsafeNameReplacer.Replace(stem)
	return strings.Trim(stem, " .")
}
