// Package compact deduplicates and truncates document text so that it fits
// a character budget.
package compact

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"exam-solver/api/internal/text"
)

const (
	// KeyPrefix is how many runes of the whitespace-free line form the dedup key.
	KeyPrefix = 64
	// MinKeyLen: строки с более коротким ключом считаются шумом.
	MinKeyLen = 3
)

// Stats describes what a compaction pass did.
type Stats struct {
	Lines      int  `json:"lines"`
	Kept       int  `json:"kept"`
	Duplicates int  `json:"duplicates"`
	Noise      int  `json:"noise"`
	Truncated  bool `json:"truncated"`
	Chars      int  `json:"chars"`
}

// Key returns the dedup key of a line: whitespace removed, lower-cased,
// first KeyPrefix runes.
func Key(line string) string {
	var b strings.Builder
	n := 0
	for _, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
		n++
		if n == KeyPrefix {
			break
		}
	}
	return b.String()
}

// Compact returns text deduplicated by line and cut to at most maxChars runes.
func Compact(s string, maxChars int) string {
	out, _ := CompactWithStats(s, maxChars)
	return out
}

// CompactWithStats is Compact plus a summary of the pass.
func CompactWithStats(s string, maxChars int) (string, Stats) {
	var st Stats
	if maxChars <= 0 {
		return "", st
	}
	lines := text.Lines(text.Normalize(s))
	st.Lines = len(lines)

	seen := make(map[string]struct{}, len(lines))
	kept := make([]string, 0, len(lines))
	size := 0
	for _, l := range lines {
		k := Key(l)
		if utf8.RuneCountInString(k) < MinKeyLen {
			st.Noise++
			continue
		}
		if _, dup := seen[k]; dup {
			st.Duplicates++
			continue
		}
		seen[k] = struct{}{}

		if len(kept) > 0 {
			size++ // "\n"
		}
		kept = append(kept, l)
		size += utf8.RuneCountInString(l)
		if size >= maxChars {
			break
		}
	}

	out := strings.Join(kept, "\n")
	if size > maxChars {
		st.Truncated = true
		out = truncateLines(kept, maxChars)
	}
	st.Kept = len(text.Lines(out))
	st.Chars = utf8.RuneCountInString(out)
	return out, st
}

// truncateLines joins lines and cuts the result to maxChars runes. Only the
// last line can be cut; the cut fragment is kept only if a second pass would
// keep it too, so that Compact(Compact(s, n), n) == Compact(s, n).
func truncateLines(lines []string, maxChars int) string {
	last := len(lines) - 1
	head := strings.Join(lines[:last], "\n")
	room := maxChars
	if last > 0 {
		room -= utf8.RuneCountInString(head) + 1
	}
	tail := strings.TrimSpace(text.Truncate(lines[last], room))
	if !keepFragment(tail, lines[:last]) {
		return head
	}
	if last == 0 {
		return tail
	}
	return head + "\n" + tail
}

func keepFragment(frag string, earlier []string) bool {
	if text.Normalize(frag) != frag {
		return false
	}
	k := Key(frag)
	if utf8.RuneCountInString(k) < MinKeyLen {
		return false
	}
	for _, l := range earlier {
		if Key(l) == k {
			return false
		}
	}
	return true
}
