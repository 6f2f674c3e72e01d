package exam

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/abadojack/whatlanggo"

	"exam-solver/api/internal/text"
)

const (
	MinNumber = 1
	MaxNumber = 50

	sampleLen = 300
)

// Строка, начинающаяся с номера вопроса 1..50: "12.", "7)", "3 Что…".
var reQuestionStart = regexp.MustCompile(`(?m)^([1-4][0-9]|50|[1-9])(?:[.)]|\s|$)`)

var reLineBreaks = regexp.MustCompile(`\s*\n\s*`)

type block struct {
	number int
	body   string
}

// splitBlocks cuts normalized text at every line-leading question number.
// Text before the first number is ignored.
func splitBlocks(s string) []block {
	locs := reQuestionStart.FindAllStringSubmatchIndex(s, -1)
	blocks := make([]block, 0, len(locs))
	for i, loc := range locs {
		end := len(s)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		n, err := strconv.Atoi(s[loc[2]:loc[3]])
		if err != nil || n < MinNumber || n > MaxNumber {
			continue
		}
		body := s[loc[3]:end]
		body = strings.TrimLeft(body, ".)")
		body = reLineBreaks.ReplaceAllString(body, " ")
		blocks = append(blocks, block{number: n, body: strings.TrimSpace(body)})
	}
	return blocks
}

// parseBlock splits a single block into stem and choices.
func parseBlock(b block) (Question, bool) {
	idx := indexDelimiter(b.body)
	if idx < 0 {
		return Question{}, false
	}
	stem := strings.TrimSpace(b.body[:idx])
	if stem == "" {
		return Question{}, false
	}
	choices, ok := extractChoices(b.body[idx:])
	if !ok {
		return Question{}, false
	}
	return Question{
		Number:  b.number,
		Stem:    stem,
		Choices: append([]string(nil), choices[:ChoiceCount]...),
	}, true
}

// Segment splits normalized exam text into questions sorted by number.
// Malformed blocks are dropped; duplicate numbers are kept in source order.
func Segment(normalized string) []Question {
	var out []Question
	for _, b := range splitBlocks(normalized) {
		if q, ok := parseBlock(b); ok {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Parse normalizes raw OCR text and segments it. An empty result is
// reported in the returned value, never as an error.
func Parse(raw string) ParseResult {
	norm := text.Normalize(raw)
	qs := Segment(norm)
	res := ParseResult{
		Questions: qs,
		Count:     len(qs),
		Language:  DetectLanguage(norm),
	}
	if len(qs) == 0 {
		res.Questions = []Question{}
		res.Error = "no questions parsed"
		res.Sample = text.Truncate(norm, sampleLen)
		return res
	}
	res.OK = true
	return res
}

// DetectLanguage guesses the ISO 639-1 code of s, "" when unreliable.
func DetectLanguage(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	info := whatlanggo.Detect(s)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
