package query

import (
	"strings"
)

// escapeTable maps each reserved character to the character following the
// backslash in its escape sequence.
var escapeTable = [...]struct {
	raw byte
	esc byte
}{
	{'\\', '\\'},
	{'/', '/'},
	{' ', 's'},
	{'|', 'p'},
	{';', ';'},
	{'\a', 'a'},
	{'\b', 'b'},
	{'\f', 'f'},
	{'\n', 'n'},
	{'\r', 'r'},
	{'\t', 't'},
	{'\v', 'v'},
}

var (
	escapeByRaw [256]byte
	rawByEscape [256]byte
	hasEscape   [256]bool
	hasRaw      [256]bool
)

func init() {
	for _, e := range escapeTable {
		escapeByRaw[e.raw] = e.esc
		hasEscape[e.raw] = true
		rawByEscape[e.esc] = e.raw
		hasRaw[e.esc] = true
	}
}

func needsEscape(s string) bool {
	for i := 0; i < len(s); i++ {
		if hasEscape[s[i]] {
			return true
		}
	}
	return false
}

// Escape replaces every reserved character of s with its two-character
// escape sequence.
func Escape(s string) string {
	if !needsEscape(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if hasEscape[c] {
			b.WriteByte('\\')
			b.WriteByte(escapeByRaw[c])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Unescape is the exact inverse of Escape.
//
// A backslash followed by a character outside the escape table, or a
// trailing lone backslash, is reported as a *DecodeError.
func Unescape(s string) (string, error) {
	if strings.IndexByte(s, '\\') < 0 {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", &DecodeError{Line: s, Message: "trailing backslash"}
		}
		if !hasRaw[s[i]] {
			return "", &DecodeError{Line: s, Message: "invalid escape sequence \\" + string(s[i])}
		}
		b.WriteByte(rawByEscape[s[i]])
	}
	return b.String(), nil
}
