package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"exam-solver/api/internal/llm"
	"exam-solver/api/internal/ocr"
	"exam-solver/api/internal/solve"
	"exam-solver/api/internal/store"
)

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot    Bot
	OCR    *ocr.Engines
	LLMs   *llm.Engines
	Runner *solve.Runner
	Jobs   store.JobStore

	// OCRLangs: подсказка языка для OCR, например "ko,en".
	OCRLangs string
	// Debounce: сколько ждать следующую страницу альбома.
	Debounce time.Duration
	// PollEvery and PollTimeout control how the bot waits for a solve job.
	PollEvery   time.Duration
	PollTimeout time.Duration
	OCRTimeout  time.Duration

	state chatState
}

const helpText = "Пришли фото страницы теста: распознаю вопросы с пятью вариантами ответа.\n" +
	"Если страниц несколько, пришли их альбомом.\n" +
	"Команды:\n/solve [подпись] решить последнюю страницу\n/engine [имя] выбрать модель\n/health"

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		r.handleCommand(msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(*msg)
	case strings.TrimSpace(msg.Text) != "":
		// текст страницы можно прислать и без фото
		r.acceptText(cid, msg.Text)
	}
}

func (r *Router) handleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "health":
		r.send(cid, "✅ OK")
	case "engine":
		r.handleEngineCommand(cid, args)
	case "solve":
		r.startSolve(cid, args)
	default:
		r.send(cid, "Неизвестная команда. /help")
	}
}

// handleEngineCommand показывает или переключает генератор для чата.
//
//	/engine
//	/engine gpt
func (r *Router) handleEngineCommand(chatID int64, arg string) {
	names := r.LLMs.Names()
	if arg == "" {
		cur := "по умолчанию"
		if g, err := r.generator(chatID); err == nil {
			cur = g.Name()
		}
		r.send(chatID, fmt.Sprintf("Текущая модель: %s\nДоступны: %s\nИспользование: /engine <имя>", cur, strings.Join(names, " | ")))
		return
	}
	name := strings.ToLower(strings.Fields(arg)[0])
	g, err := r.LLMs.Get(name)
	if err != nil {
		r.send(chatID, "Неизвестная модель. Доступны: "+strings.Join(names, " | "))
		return
	}
	r.state.setEngine(chatID, name)
	r.send(chatID, "✅ Модель: "+g.Name())
}

func (r *Router) generator(chatID int64) (llm.Generator, error) {
	return r.LLMs.Get(r.state.engine(chatID))
}

func (r *Router) send(chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessage) {
		_, _ = r.Bot.Send(tgbotapi.NewMessage(chatID, part))
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("Ошибка: %v", err))
}

func (r *Router) debounce() time.Duration {
	if r.Debounce > 0 {
		return r.Debounce
	}
	return 1200 * time.Millisecond
}

func (r *Router) ocrTimeout() time.Duration {
	if r.OCRTimeout > 0 {
		return r.OCRTimeout
	}
	return 90 * time.Second
}
