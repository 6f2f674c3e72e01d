package exam

import (
	"regexp"
	"strings"
)

// Strategy turns a raw choices region into a choice list. ok reports whether
// the strategy produced at least ChoiceCount entries.
type Strategy func(region string) (choices []string, ok bool)

// Strategies are tried in order; the first one that succeeds wins.
var Strategies = []Strategy{
	splitOnDelimiters,
	splitOnGaps,
	splitOnEnumerators,
}

var (
	reGap        = regexp.MustCompile(`\s{2,}|\.\s`)
	reEnumerator = regexp.MustCompile(`(?:^|\s)\(?[1-5]\)\s*`)
)

// splitOnDelimiters: "① a ② b ③ c" → [a b c].
func splitOnDelimiters(region string) ([]string, bool) {
	out := compactFragments(strings.FieldsFunc(region, isDelimiter))
	return out, len(out) >= ChoiceCount
}

// splitOnGaps заменяет разделители пробелом и режет по двойным пробелам
// или ". ". Берём последние пять фрагментов.
func splitOnGaps(region string) ([]string, bool) {
	replaced := strings.Map(func(r rune) rune {
		if isDelimiter(r) {
			return ' '
		}
		return r
	}, region)
	out := compactFragments(reGap.Split(replaced, -1))
	if len(out) < ChoiceCount {
		return out, false
	}
	return out[len(out)-ChoiceCount:], true
}

// splitOnEnumerators handles "(1) a (2) b" and "1) a 2) b", which OCR often
// produces instead of circled digits.
func splitOnEnumerators(region string) ([]string, bool) {
	region = strings.Map(func(r rune) rune {
		if isDelimiter(r) {
			return ' '
		}
		return r
	}, region)
	out := compactFragments(reEnumerator.Split(region, -1))
	return out, len(out) >= ChoiceCount
}

func compactFragments(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// extractChoices applies the strategies in order.
func extractChoices(region string) ([]string, bool) {
	for _, s := range Strategies {
		if choices, ok := s(region); ok {
			return choices, true
		}
	}
	return nil, false
}
