package telegram

import (
	"sync"
	"time"
)

// chatState хранит состояние чатов в памяти процесса.
type chatState struct {
	lastText sync.Map // chatID -> string, последний распознанный текст
	engines  sync.Map // chatID -> string, выбранный генератор
	batches  sync.Map // key -> *photoBatch
	solving  sync.Map // chatID -> jobID, пока ждём ответ
}

func (s *chatState) setText(chatID int64, text string) { s.lastText.Store(chatID, text) }

func (s *chatState) text(chatID int64) string {
	if v, ok := s.lastText.Load(chatID); ok {
		return v.(string)
	}
	return ""
}

func (s *chatState) setEngine(chatID int64, name string) { s.engines.Store(chatID, name) }

func (s *chatState) engine(chatID int64) string {
	if v, ok := s.engines.Load(chatID); ok {
		return v.(string)
	}
	return ""
}

type photoBatch struct {
	ChatID int64
	Key    string // "grp:<mediaGroupID>" | "chat:<chatID>"

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
}
