package utils

import (
	"strings"
	"unicode/utf8"
)

// CleanUTF8 removes invalid UTF8 sequences and NUL bytes, which postgres text columns reject.
// Returns the cleaned string and whether cleaning was needed.
func CleanUTF8(input string) (string, bool) {
	needsCleaning := strings.Contains(input, "\x00") || !utf8.ValidString(input)

	if !needsCleaning {
		return input, false
	}

	cleaned := strings.ToValidUTF8(input, "")
	cleaned = strings.ReplaceAll(cleaned, "\x00", "")

	return cleaned, true
}

// WordCount counts whitespace separated words.
func WordCount(input string) int {
	return len(strings.Fields(input))
}

// CharCount counts characters, not bytes.
func CharCount(input string) int {
	return utf8.RuneCountInString(input)
}

// Excerpt shortens input to at most max characters, marking the cut with an ellipsis.
func Excerpt(input string, max int) string {
	if max <= 0 || utf8.RuneCountInString(input) <= max {
		return input
	}
	runes := []rune(input)
	return string(runes[:max]) + "..."
}
