package fql

import (
	"strings"
	"unicode/utf8"
)

// EscapePath backslash-escapes every rune of a field name outside
// [a-zA-Z0-9._-] so the name can appear in an FQL identifier.
// Periods are left alone because they separate nested path segments; a
// literal period inside a key is indistinguishable from nesting.
// Bytes that are not valid UTF-8 are escaped one at a time and kept as is.
func EscapePath(name string) string {
	if !needsEscape(name) {
		return name
	}
	var b strings.Builder
	b.Grow(len(name) + 8)
	for i := 0; i < len(name); {
		r, size := utf8.DecodeRuneInString(name[i:])
		if !isPathRune(r) {
			b.WriteByte('\\')
		}
		b.WriteString(name[i : i+size])
		i += size
	}
	return b.String()
}

// UnescapePath reverses EscapePath: a backslash makes the following rune,
// or invalid byte, literal. A trailing lone backslash is kept.
func UnescapePath(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for i := 0; i < len(s); {
		if s[i] == '\\' && !escaped {
			escaped = true
			i++
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		escaped = false
		b.WriteString(s[i : i+size])
		i += size
	}
	if escaped {
		b.WriteByte('\\')
	}
	return b.String()
}

func needsEscape(name string) bool {
	for _, r := range name {
		if !isPathRune(r) {
			return true
		}
	}
	return false
}

func isPathRune(r rune) bool {
	return 'a' <= r && r <= 'z' ||
		'A' <= r && r <= 'Z' ||
		'0' <= r && r <= '9' ||
		r == '.' || r == '_' || r == '-'
}
