package processor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsChinese reports whether r is a CJK Unified Ideograph (U+4E00..U+9FFF).
func IsChinese(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

// CountChinese counts CJK Unified Ideographs in s.
func CountChinese(s string) int {
	n := 0
	for _, r := range s {
		if IsChinese(r) {
			n++
		}
	}
	return n
}

// Normalize trims every line, collapses inner whitespace runs to one space,
// drops blank lines and joins the rest with "\n". Normalize is idempotent.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if fields := strings.Fields(line); len(fields) > 0 {
			cleaned = append(cleaned, strings.Join(fields, " "))
		}
	}
	return strings.Join(cleaned, "\n")
}

// optionMarkers are counted as literal substrings. This approximates
// multiple-choice options and will also match incidental text such as "U.S.A.".
var optionMarkers = []string{"A.", "B.", "C.", "D."}

// Analyze computes content statistics of normalized text. Characters are
// counted as runes. Empty text yields a zero record.
func Analyze(text string) Stats {
	if text == "" {
		return Stats{}
	}

	stats := Stats{
		TotalChars: utf8.RuneCountInString(text),
		Lines:      strings.Count(text, "\n") + 1,
		Questions:  strings.Count(text, "?") + strings.Count(text, "？"),
	}

	for _, r := range text {
		switch {
		case IsChinese(r):
			stats.ChineseChars++
		case r < utf8.RuneSelf && unicode.IsLetter(r):
			stats.EnglishChars++
		case unicode.IsDigit(r):
			stats.DigitChars++
		}
	}

	for _, marker := range optionMarkers {
		stats.Options += strings.Count(text, marker)
	}

	return stats
}
