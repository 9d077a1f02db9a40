package engine

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go-kit/strutil"
)

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for UTF-8 (Cyrillic, CJK, emoji).
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// RuneLen is the length of s in runes.
func RuneLen(s string) int { return utf8.RuneCountInString(s) }

var (
	crlfRe       = regexp.MustCompile(`\r\n?`)
	trailingWSRe = regexp.MustCompile(`[ \t]+\n`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

// NormalizeNewlines converts CRLF/CR to LF, drops trailing spaces and collapses runs of
// blank lines to one.
func NormalizeNewlines(s string) string {
	s = crlfRe.ReplaceAllString(s, "\n")
	s = trailingWSRe.ReplaceAllString(s, "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int { return len(strings.Fields(s)) }
