package solve

import (
	"fmt"
	"strings"

	"exam-solver/api/internal/answer"
	"exam-solver/api/internal/llm"
)

const systemPrompt = `You solve multiple-choice exam pages that were read by OCR.
The text may contain recognition noise; infer the intended wording when it is obvious.
Each question has five choices marked ① ② ③ ④ ⑤ (or similar glyphs).
Answer strictly in two sections, each starting with its header line exactly as given:
%s
one line per question: "<number>. <choice glyph>"
%s
a short justification per question, in the language of the exam.
Do not add any other sections.`

// BuildPrompt assembles the instructions and the compacted exam text.
// Every attempt uses the same instructions; only the document text shrinks.
func BuildPrompt(doc string, m answer.Markers, language string, opts Options) llm.Prompt {
	var user strings.Builder
	if language != "" {
		fmt.Fprintf(&user, "Exam language: %s.\n", language)
	}
	user.WriteString("Exam text:\n<<<\n")
	user.WriteString(doc)
	user.WriteString("\n>>>")

	return llm.Prompt{
		System:          fmt.Sprintf(systemPrompt, m[0], m[1]),
		User:            user.String(),
		Temperature:     opts.Temperature,
		MaxOutputTokens: opts.MaxOutputTokens,
	}
}
