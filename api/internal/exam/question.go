package exam

// ChoiceCount: сколько вариантов ответа должно быть у вопроса.
const ChoiceCount = 5

// Question is one multiple-choice item recovered from an exam page.
type Question struct {
	Number  int      `json:"number"`
	Stem    string   `json:"stem"`
	Choices []string `json:"choices"`
}

// ParseResult is the caller-facing outcome of Parse. An empty parse is
// reported with OK=false and a Sample of the normalized input.
type ParseResult struct {
	OK        bool       `json:"ok"`
	Questions []Question `json:"questions"`
	Count     int        `json:"count"`
	Language  string     `json:"language,omitempty"` // ISO 639-1, угадывается по тексту
	Error     string     `json:"error,omitempty"`
	Sample    string     `json:"sample,omitempty"`
}
