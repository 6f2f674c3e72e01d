// Package gemini recognizes exam page text with the Gemini vision models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"exam-solver/api/internal/util"
)

const systemPrompt = `You are an OCR engine for printed exam pages.
Return ONLY the text of the page, verbatim, line by line, in reading order.
Keep question numbers at the start of their lines and keep answer-choice glyphs
(①②③④⑤ and similar) exactly as printed. Do not solve, translate or comment.`

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string { return "gemini" }

func (e *Engine) Recognize(ctx context.Context, image []byte, langs []string) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "text/plain",
	}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	user := "Transcribe this page."
	if len(langs) > 0 {
		user += fmt.Sprintf(" Expected languages: %s.", strings.Join(langs, ", "))
	}
	resp, err := m.GenerateContent(ctx,
		genai.Text(user),
		&genai.Blob{MIMEType: util.PickMIME("", "", image), Data: image},
	)
	if err != nil {
		return "", fmt.Errorf("gemini ocr: %w", err)
	}
	return util.StripCodeFences(strings.TrimSpace(firstText(resp))), nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
