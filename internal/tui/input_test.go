package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/storefront/pkg/domain"
)

func typed(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestEditText(t *testing.T) {
	long := strings.Repeat("a", maxInputLen)
	cjk := strings.Repeat("\u4f60", maxInputLen)
	tests := []struct {
		name  string
		start string
		msg   tea.KeyMsg
		want  string
	}{
		{"typed digit", "4.", typed("5"), "4.5"},
		{"pasted url", "", typed("https://i.imgur.com/QkIa5tT.jpeg"), "https://i.imgur.com/QkIa5tT.jpeg"},
		{"space", "Warm", tea.KeyMsg{Type: tea.KeySpace}, "Warm "},
		{"backspace accented", "café", tea.KeyMsg{Type: tea.KeyBackspace}, "caf"},
		{"backspace emoji", "hat\U0001f3a9", tea.KeyMsg{Type: tea.KeyBackspace}, "hat"},
		{"backspace empty", "", tea.KeyMsg{Type: tea.KeyBackspace}, ""},
		{"paste clamped", long[3:], typed("abcdef"), long[3:] + "abc"},
		{"full field rejects runes", long, typed("b"), long},
		{"full field rejects space", long, tea.KeyMsg{Type: tea.KeySpace}, long},
		{"full field still deletes", long, tea.KeyMsg{Type: tea.KeyBackspace}, long[1:]},
		{"rune limit counts runes", cjk, typed("\u597d"), cjk},
		{"enter ignored", "Mug", tea.KeyMsg{Type: tea.KeyEnter}, "Mug"},
		{"arrow ignored", "Mug", tea.KeyMsg{Type: tea.KeyLeft}, "Mug"},
		{"ctrl ignored", "Mug", tea.KeyMsg{Type: tea.KeyCtrlC}, "Mug"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := editText(tc.start, tc.msg)
			if got != tc.want {
				t.Errorf("editText(%d runes, %v) = %d runes, want %d", len([]rune(tc.start)), tc.msg, len([]rune(got)), len([]rune(tc.want)))
			}
		})
	}
}

func TestFormFieldEditing(t *testing.T) {
	f := newFilterForm([]domain.Category{{ID: 1, Name: "Clothes"}}, domain.ProductFilters{})
	f.focus = ffPriceMin
	for _, m := range []tea.KeyMsg{typed("1"), typed("0"), tea.KeyMsg{Type: tea.KeyBackspace}, typed("5")} {
		f.update(m)
	}
	if got := f.value(ffPriceMin); got != "15" {
		t.Errorf("price min = %q, want %q", got, "15")
	}

	f.focus = ffCategory
	f.update(typed("x"))
	if f.fields[ffCategory].value != "" {
		t.Error("choice fields must not take typed text")
	}
}

func TestTruncateToHeight(t *testing.T) {
	input := "line1\nline2\nline3\nline4\nline5\n"
	tests := []struct {
		max  int
		want string
	}{
		{3, "line1\nline2\nline3\n"},
		{5, input},
		{10, input},
		{0, input},
		{-1, input},
	}
	for _, tc := range tests {
		if got := truncateToHeight(input, tc.max); got != tc.want {
			t.Errorf("truncateToHeight(5 lines, %d) = %q, want %q", tc.max, got, tc.want)
		}
	}
}

func TestTruncStr(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"Classic Mug", 20, "Classic Mug"},
		{"Classic Mug", 8, "Classic\u2026"},
		{"", 5, ""},
		{"caf\u00e9s", 5, "caf\u00e9s"},
		{"\u4f60\u597d\u4e16\u754c", 3, "\u4f60\u597d\u2026"},
	}
	for _, tc := range tests {
		if got := truncStr(tc.s, tc.maxLen); got != tc.want {
			t.Errorf("truncStr(%q, %d) = %q, want %q", tc.s, tc.maxLen, got, tc.want)
		}
	}
}

func TestParseOptionalFloat(t *testing.T) {
	v, err := parseOptionalFloat("")
	if err != nil || v != nil {
		t.Fatalf("empty: got %v, %v", v, err)
	}
	v, err = parseOptionalFloat(" 12.5 ")
	if err != nil || v == nil || *v != 12.5 {
		t.Fatalf("12.5: got %v, %v", v, err)
	}
	if _, err := parseOptionalFloat("-1"); err == nil {
		t.Error("expected error for negative amount")
	}
	if _, err := parseOptionalFloat("ten"); err == nil {
		t.Error("expected error for non-numeric amount")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b ,c,")
	if strings.Join(got, "|") != "a|b|c" {
		t.Errorf("splitList = %q", got)
	}
	if splitList("  ") != nil {
		t.Error("expected nil for blank input")
	}
}

func TestFormatPrice(t *testing.T) {
	if got := formatPrice(9); got != "$9.00" {
		t.Errorf("formatPrice(9) = %q", got)
	}
	if got := formatPrice(12.5); got != "$12.50" {
		t.Errorf("formatPrice(12.5) = %q", got)
	}
}
