package tui

import (
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

// maxInputLen is the maximum number of runes a text field holds.
const maxInputLen = 2000

// editText applies a key message to a text field. Typed and pasted runes are
// appended up to maxInputLen; backspace removes the last rune. Other keys
// leave the text unchanged.
func editText(text string, msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeyBackspace:
		if _, size := utf8.DecodeLastRuneInString(text); size > 0 {
			return text[:len(text)-size]
		}
		return text
	case tea.KeySpace:
		return appendRunes(text, []rune{' '})
	case tea.KeyRunes:
		return appendRunes(text, msg.Runes)
	}
	return text
}

func appendRunes(text string, runes []rune) string {
	room := maxInputLen - utf8.RuneCountInString(text)
	if room <= 0 {
		return text
	}
	if len(runes) > room {
		runes = runes[:room]
	}
	return text + string(runes)
}

// truncateToHeight keeps the first maxLines lines of s. A non-positive
// maxLines keeps everything.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}
