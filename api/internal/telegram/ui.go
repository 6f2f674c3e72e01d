package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"exam-solver/api/internal/exam"
)

// maxMessage: лимит Telegram 4096 символов, с запасом.
const maxMessage = 3900

func makeSolveKeyboard() tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("Решить", cbSolve)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

var choiceGlyphs = []string{"①", "②", "③", "④", "⑤"}

func formatParse(pr exam.ParseResult) string {
	if !pr.OK {
		var b strings.Builder
		b.WriteString("Не нашёл вопросов с пятью вариантами ответа.")
		if pr.Sample != "" {
			b.WriteString("\n\nРаспознанный текст:\n")
			b.WriteString(pr.Sample)
		}
		b.WriteString("\n\nМожно всё равно нажать «Решить».")
		return b.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Вопросов: %d", pr.Count)
	if pr.Language != "" {
		fmt.Fprintf(&b, " (язык: %s)", pr.Language)
	}
	for _, q := range pr.Questions {
		fmt.Fprintf(&b, "\n\n%d. %s", q.Number, q.Stem)
		for i, c := range q.Choices {
			fmt.Fprintf(&b, "\n%s %s", choiceGlyphs[i%len(choiceGlyphs)], c)
		}
	}
	return b.String()
}

// splitMessage cuts text into parts of at most n runes, preferring line breaks.
func splitMessage(text string, n int) []string {
	var out []string
	for utf8.RuneCountInString(text) > n {
		r := []rune(text)
		cut := n
		if i := strings.LastIndex(string(r[:n]), "\n"); i > 0 {
			cut = utf8.RuneCountInString(string(r[:n])[:i])
		}
		out = append(out, strings.TrimRight(string(r[:cut]), "\n"))
		text = strings.TrimLeft(string(r[cut:]), "\n")
	}
	if text != "" || len(out) == 0 {
		out = append(out, text)
	}
	return out
}
