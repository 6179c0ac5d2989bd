package services

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\x{00A0}\x{2000}-\x{200A}\x{202F}\x{205F}\x{3000}]+`)
	spaceAroundLF   = regexp.MustCompile(` ?\n ?`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText repairs encoding damage and collapses whitespace: invalid
// UTF-8 becomes U+FFFD, text is NFC-composed, control characters other than
// newline and tab are dropped, runs of horizontal space collapse to one space
// and more than one blank line collapses to a single blank line.
func NormalizeText(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	text = norm.NFC.String(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\f' || r == '\v':
			return ' '
		case r == '\u2028' || r == '\u2029':
			return '\n'
		case r == '\ufeff' || r == '\u200b':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, text)

	text = horizontalSpace.ReplaceAllString(text, " ")
	text = spaceAroundLF.ReplaceAllString(text, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ClipText truncates text to at most maxChars runes.
func ClipText(text string, maxChars int) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text, false
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxChars])), true
}

// CharCount counts runes, which is what every character ceiling measures.
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}
