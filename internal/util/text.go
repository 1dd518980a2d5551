package util

import (
	"strings"
	"unicode"
)

// CleanText trims s and strips control characters and invisible formatting
// runes (zero-width spaces, direction marks, BOM) from user-supplied text.
// Newlines and tabs survive only when keepNewlines is set.
func CleanText(s string, keepNewlines bool) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if keepNewlines && (r == '\n' || r == '\t') {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || isInvisibleUnicode(r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}

// isInvisibleUnicode returns true for zero-width, formatting, and other
// invisible Unicode characters.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case
		'\u200B', // Zero-Width Space
		'\u200C', // Zero-Width Non-Joiner
		'\u200D', // Zero-Width Joiner
		'\u200E', // Left-to-Right Mark
		'\u200F', // Right-to-Left Mark
		'\u2060', // Word Joiner
		'\uFEFF', // Zero-Width No-Break Space / BOM
		'\uFFF9', // Interlinear Annotation Anchor
		'\uFFFA', // Interlinear Annotation Separator
		'\uFFFB': // Interlinear Annotation Terminator
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
