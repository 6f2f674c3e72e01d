// Package answer validates generated answers and repairs their layout.
package answer

import "strings"

// Placeholder is appended under the second marker when the model did not
// produce that section.
const Placeholder = "(этот раздел не был сгенерирован, продолжите ответ здесь)"

// Markers are the two section headers every final answer must contain, in order.
type Markers [2]string

// DefaultMarkers: «Ответы» и «Пояснения».
var DefaultMarkers = Markers{"### Ответы", "### Пояснения"}

// HasSections reports whether text contains both markers, the first before the second.
func HasSections(text string, m Markers) bool {
	i := strings.Index(text, m[0])
	if i < 0 {
		return false
	}
	return strings.Contains(text[i+len(m[0]):], m[1])
}

// Finalize guarantees that the returned text contains both markers in order
// and, when prefix is non-empty, starts with prefix.
func Finalize(text string, m Markers, prefix string) string {
	out := text
	if !HasSections(text, m) {
		var b strings.Builder
		b.WriteString(m[0])
		b.WriteString("\n")
		body := strings.TrimSpace(text)
		if prefix != "" {
			// префикс уйдёт в начало ответа, внутри секции он не нужен
			body = strings.TrimSpace(strings.TrimPrefix(body, prefix))
		}
		if body != "" {
			b.WriteString(body)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m[1])
		b.WriteString("\n")
		b.WriteString(Placeholder)
		out = b.String()
	}
	if prefix != "" && !strings.HasPrefix(out, prefix) {
		out = prefix + "\n" + out
	}
	return out
}
