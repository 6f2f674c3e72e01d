package telegram

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exam-solver/api/internal/exam"
	"exam-solver/api/internal/llm"
	"exam-solver/api/internal/ocr"
	"exam-solver/api/internal/solve"
	"exam-solver/api/internal/store"
)

const page = "1. 다음 중 옳은 것은? ① 가 ② 나 ③ 다 ④ 라 ⑤ 마"

type fakeBot struct {
	mu      sync.Mutex
	sent    []string
	markups int
	fileURL string
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		b.sent = append(b.sent, m.Text)
	case tgbotapi.EditMessageReplyMarkupConfig:
		b.markups++
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetFileDirectURL(string) (string, error) { return b.fileURL, nil }

func (b *fakeBot) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sent...)
}

func (b *fakeBot) last() string {
	t := b.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

type fakeOCR struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeOCR) Name() string { return "fake" }

func (f *fakeOCR) Recognize(context.Context, []byte, []string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return page, nil
}

type namedGen struct {
	name string
	out  string
	err  error
}

func (g namedGen) Name() string { return g.name }

func (g namedGen) Generate(context.Context, llm.Prompt) (string, error) { return g.out, g.err }

func newRouter(t *testing.T, gens ...llm.Generator) (*Router, *fakeBot, *fakeOCR) {
	t.Helper()
	jobs := store.NewMemory()
	runner, err := solve.NewRunner(jobs, nil, solve.Options{RetryDelay: 0})
	require.NoError(t, err)

	llms := llm.NewEngines(gens[0].Name())
	for _, g := range gens {
		llms.Register(g)
	}
	f := &fakeOCR{}
	var engs ocr.Engines
	engs.Register(f)

	bot := &fakeBot{}
	r := &Router{
		Bot: bot, OCR: &engs, LLMs: llms, Runner: runner, Jobs: jobs,
		Debounce: 20 * time.Millisecond, PollEvery: 10 * time.Millisecond, PollTimeout: 5 * time.Second,
	}
	return r, bot, f
}

func command(chatID int64, text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func textMsg(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}}
}

func TestRouter_StartAndUnknown(t *testing.T) {
	r, bot, _ := newRouter(t, namedGen{name: "gemini"})
	r.HandleUpdate(command(1, "/start"))
	assert.Contains(t, bot.last(), "/solve")
	r.HandleUpdate(command(1, "/nope"))
	assert.Contains(t, bot.last(), "Неизвестная команда")
}

func TestRouter_EngineSwitch(t *testing.T) {
	r, bot, _ := newRouter(t, namedGen{name: "gemini"}, namedGen{name: "gpt"})

	r.HandleUpdate(command(1, "/engine"))
	assert.Contains(t, bot.last(), "gemini | gpt")

	r.HandleUpdate(command(1, "/engine GPT"))
	assert.Contains(t, bot.last(), "gpt")
	g, err := r.generator(1)
	require.NoError(t, err)
	assert.Equal(t, "gpt", g.Name())

	// другой чат не затронут
	g, err = r.generator(2)
	require.NoError(t, err)
	assert.Equal(t, "gemini", g.Name())

	r.HandleUpdate(command(1, "/engine llama"))
	assert.Contains(t, bot.last(), "Неизвестная модель")
}

func TestRouter_SolveWithoutPage(t *testing.T) {
	r, bot, _ := newRouter(t, namedGen{name: "gemini", out: "x"})
	r.HandleUpdate(command(1, "/solve"))
	assert.Contains(t, bot.last(), "Сначала")
}

func TestRouter_TextThenSolve(t *testing.T) {
	r, bot, _ := newRouter(t, namedGen{name: "gemini", out: "1. ③"})

	r.HandleUpdate(textMsg(7, page))
	assert.Contains(t, bot.last(), "Вопросов: 1")

	r.HandleUpdate(command(7, "/solve Вариант 3"))
	require.Eventually(t, func() bool {
		return strings.HasPrefix(bot.last(), "Вариант 3")
	}, 5*time.Second, 10*time.Millisecond)

	ans := bot.last()
	assert.Contains(t, ans, "### Ответы")
	assert.Contains(t, ans, "### Пояснения")
}

func TestRouter_SolveFailureReported(t *testing.T) {
	r, bot, _ := newRouter(t, namedGen{name: "gemini", err: &llm.UpstreamError{Service: "gemini", Kind: llm.FailureStatus, Status: 503}})

	r.HandleUpdate(textMsg(7, page))
	r.HandleUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "cb", Data: cbSolve, Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: 7}},
	}})

	require.Eventually(t, func() bool {
		return strings.HasPrefix(bot.last(), "❌")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, bot.last(), "503")
	bot.mu.Lock()
	assert.Equal(t, 1, bot.markups)
	bot.mu.Unlock()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRouter_AlbumIsRecognizedOnce(t *testing.T) {
	r, bot, f := newRouter(t, namedGen{name: "gemini"})
	img := pngBytes(t, 20, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write(img) }))
	defer srv.Close()
	bot.fileURL = srv.URL + "/file.png"
	r.Debounce = 300 * time.Millisecond

	for i := 0; i < 2; i++ {
		r.HandleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
			Chat:         &tgbotapi.Chat{ID: 3},
			MediaGroupID: "album",
			Photo:        []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "big"}},
		}})
	}

	require.Eventually(t, func() bool {
		return strings.Contains(bot.last(), "Вопросов: 1")
	}, 5*time.Second, 10*time.Millisecond)
	f.mu.Lock()
	assert.Equal(t, 1, f.calls)
	f.mu.Unlock()
	assert.Equal(t, page, r.state.text(3))
}

func TestStitch(t *testing.T) {
	out, err := stitch([][]byte{pngBytes(t, 30, 10), pngBytes(t, 20, 15)})
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 30, img.Bounds().Dx())
	assert.Equal(t, 25, img.Bounds().Dy())

	_, err = stitch([][]byte{[]byte("not an image")})
	assert.Error(t, err)
}

func TestFormatParse(t *testing.T) {
	got := formatParse(exam.Parse(page))
	assert.Contains(t, got, "1. 다음 중 옳은 것은?")
	assert.Contains(t, got, "⑤ 마")

	got = formatParse(exam.Parse("nothing here"))
	assert.Contains(t, got, "Не нашёл")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	parts := splitMessage("аааа\nбббб\nвввв", 10)
	assert.Equal(t, []string{"аааа\nбббб", "вввв"}, parts)

	long := strings.Repeat("я", 25)
	parts = splitMessage(long, 10)
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), 10)
	}
	assert.Equal(t, long, strings.Join(parts, ""))
}

func TestWaitJob_Timeout(t *testing.T) {
	jobs := store.NewMemory()
	require.NoError(t, jobs.Put(context.Background(), store.Job{ID: "j", Status: store.StatusRunning}))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := waitJob(ctx, jobs, "j", 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
