// Package sanitize turns remote strings (product titles, descriptions,
// account names) into plain text that is safe to print to a terminal.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy = bluemonday.StrictPolicy()
	ansi   = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)
)

// Text strips markup, terminal escape sequences and control characters, and
// collapses runs of whitespace.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(policy.Sanitize(s))
	s = ansi.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Line is Text truncated to at most max runes, with an ellipsis when cut.
func Line(s string, max int) string {
	s = Text(s)
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
