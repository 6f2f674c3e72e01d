package ocr

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultLangs are used when the caller gives no language hint.
var DefaultLangs = []string{"ko", "en"}

// LanguageCodes turns a caller hint like "ko-KR" or "ru,en" into ISO 639-1
// base codes. Unparseable parts are skipped.
func LanguageCodes(hint string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.FieldsFunc(hint, func(r rune) bool { return r == ',' || r == ' ' || r == ';' }) {
		tag, err := language.Parse(part)
		if err != nil {
			continue
		}
		base, conf := tag.Base()
		if conf == language.No {
			continue
		}
		code := base.String()
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultLangs...)
	}
	return out
}
