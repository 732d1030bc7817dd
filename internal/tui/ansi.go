package tui

import (
	"strings"
	"unicode/utf8"
)

// visibleWidth counts the runes of s that occupy a cell, skipping ANSI
// escape sequences.
func visibleWidth(s string) int {
	n := 0
	for i := 0; i < len(s); {
		if s[i] == '\033' {
			i = skipEscape(s, i)
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		n++
	}
	return n
}

// fitWidth truncates s to width visible cells, keeping escape sequences
// intact and resetting colors when it cuts.
func fitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if visibleWidth(s) <= width {
		return s
	}

	var b strings.Builder
	n := 0
	for i := 0; i < len(s); {
		if s[i] == '\033' {
			end := skipEscape(s, i)
			b.WriteString(s[i:end])
			i = end
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		if n == width-1 {
			b.WriteString("…")
			break
		}
		b.WriteString(s[i : i+size])
		i += size
		n++
	}
	b.WriteString(ColorReset)
	return b.String()
}

// skipEscape returns the index just past the CSI sequence starting at i.
func skipEscape(s string, i int) int {
	j := i + 1
	if j < len(s) && s[j] == '[' {
		j++
		for j < len(s) && (s[j] < 0x40 || s[j] > 0x7e) {
			j++
		}
		if j < len(s) {
			j++
		}
		return j
	}
	return j
}
