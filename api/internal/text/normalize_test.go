package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "carriage returns", in: "a\r\nb\rc", want: "a\nb\nc"},
		{name: "horizontal whitespace", in: "a  \t b  c", want: "a b c"},
		{name: "blank runs", in: "a\n\n\n\n b \n\nc", want: "a\n\nb\n\nc"},
		{name: "page markers", in: "1. q\n--- Page 2 ---\n2. r\n[Page 3/4]\n- 7 -\nPage 5", want: "1. q\n\n2. r"},
		{name: "form feed", in: "a\fb", want: "a\nb"},
		{name: "fullwidth digits", in: "１２． 文", want: "12. 文"},
		{name: "circled digits untouched", in: "① a ② b", want: "① a ② b"},
		{name: "fullwidth page marker", in: "a\nＰａｇｅ ５\nb", want: "a\n\nb"},
		{name: "nbsp page marker", in: "a\nPage\u00A05\nb", want: "a\n\nb"},
		{name: "ideographic space dash page", in: "a\n-\u30007\u3000-\nb", want: "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range []string{
		"  3.  What\r\n\r\n\r\nis ①  x ② y  \n--- Page 1 ---\n",
		"first real line\nPage\u00A05\nlast real line",
		"first real line\nＰａｇｅ ５\nlast real line",
		"[Ｐａｇｅ\u2009２／４]\n１. ｑ",
	} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "①②", Truncate("①②③", 2))
	assert.Equal(t, "abc", Truncate("abc", 10))
}

func TestLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Lines("a\n\n  \nb\n"))
}
