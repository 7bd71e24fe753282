package sanitize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Classic Red Pullover Hoodie", "Classic Red Pullover Hoodie"},
		{"tags stripped", "<b>Bold</b> <i>move</i>", "Bold move"},
		{"script dropped", "<script>alert(1)</script>Hello", "Hello"},
		{"entities decoded", "Salt &amp; Pepper", "Salt & Pepper"},
		{"ansi removed", "\x1b[31mred\x1b[0m alert", "red alert"},
		{"control chars", "bell\x07 here", "bell here"},
		{"whitespace collapsed", "  many\n\n lines\tand   spaces ", "many lines and spaces"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestLine(t *testing.T) {
	require.Equal(t, "short", Line("short", 10))
	require.Equal(t, "abcd…", Line("abcdefgh", 5))
	require.Equal(t, "…", Line("abc", 1))
	require.Equal(t, "", Line("abc", 0))
}
