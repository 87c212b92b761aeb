package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Plural returns `word` suffixed with "s" unless n is exactly 1.
func Plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
