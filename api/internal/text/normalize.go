package text

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var (
	// Маркеры разрывов страниц, которые оставляет OCR:
	//   --- Page 3 ---   [Page 2/4]   Page 5   - 7 -   p. 3
	rePageMarker = regexp.MustCompile(`(?im)^[ \t]*(?:-{2,}[ \t]*)?\[?(?:page|p\.)[ \t]*\d+(?:[ \t]*/[ \t]*\d+)?\]?(?:[ \t]*-{2,})?[ \t]*$`)
	reDashPage   = regexp.MustCompile(`(?m)^[ \t]*-[ \t]*\d+[ \t]*-[ \t]*$`)

	reHorizontalWS = regexp.MustCompile(`[ \t\v\x{00A0}\x{2000}-\x{200A}\x{202F}\x{205F}\x{3000}]+`)
	reBlankRuns    = regexp.MustCompile(`\n{3,}`)
)

// Normalize strips layout artifacts from OCR text and returns a canonical
// line-oriented form. It is total: any input, including "", is accepted.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\f", "\n")

	// １２．→ 12. ; кружочки ①..⑳ не затрагиваются
	s = width.Fold.String(s)
	s = reHorizontalWS.ReplaceAllString(s, " ")

	// маркеры ищем уже после свёртки ширины и пробелов: "Ｐａｇｅ ５" тоже маркер
	s = rePageMarker.ReplaceAllString(s, "")
	s = reDashPage.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")

	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Lines splits normalized text into non-empty lines.
func Lines(s string) []string {
	raw := strings.Split(s, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
