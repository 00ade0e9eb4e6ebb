package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NameURI derives the URL-safe identifier a camera is addressed by: the
// nickname (or MAC when the nickname is empty) with spaces turned into
// hyphens, anything but word characters, hyphens and pluses dropped,
// lowercased, and non-ASCII stripped. Two cameras with the same nickname
// produce the same URI; lookups take the first match.
func NameURI(nickname, mac string) string {
	name := nickname
	if name == "" {
		name = mac
	}
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "-")

	var kept strings.Builder
	for _, r := range name {
		if r == '-' || r == '+' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			kept.WriteRune(r)
		}
	}

	var out strings.Builder
	for _, r := range strings.ToLower(kept.String()) {
		if r < utf8.RuneSelf {
			out.WriteRune(r)
		}
	}
	return out.String()
}
