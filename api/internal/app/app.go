// Package app assembles stores, engines and the solve runner from config.
package app

import (
	"context"
	"log"
	"strings"

	"github.com/robfig/cron/v3"

	"exam-solver/api/internal/answer"
	"exam-solver/api/internal/config"
	"exam-solver/api/internal/llm"
	"exam-solver/api/internal/ocr"
	ocrgemini "exam-solver/api/internal/ocr/gemini"
	"exam-solver/api/internal/ocr/yandex"
	"exam-solver/api/internal/solve"
	"exam-solver/api/internal/store"
)

type App struct {
	Cfg    *config.Config
	Jobs   store.JobStore
	Runner *solve.Runner
	OCR    *ocr.Engines
	LLMs   *llm.Engines

	repo *store.JobRepo
}

// New opens the job store (Postgres when a DSN is configured, SQLite otherwise).
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	repo, err := store.Open(ctx, store.ResolveDSN(), cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	a, err := NewWithStore(cfg, repo)
	if err != nil {
		_ = repo.DB.Close()
		return nil, err
	}
	a.repo = repo
	return a, nil
}

// NewWithStore builds the app around an existing job store.
func NewWithStore(cfg *config.Config, jobs store.JobStore) (*App, error) {
	llms := Generators(cfg)
	def, err := llms.Get("")
	if err != nil {
		log.Printf("app: no default generator: %v", err)
		def = nil
	}
	runner, err := solve.NewRunner(jobs, def, RunnerOptions(cfg))
	if err != nil {
		return nil, err
	}
	return &App{
		Cfg:    cfg,
		Jobs:   jobs,
		Runner: runner,
		OCR:    Recognizers(cfg),
		LLMs:   llms,
	}, nil
}

func RunnerOptions(cfg *config.Config) solve.Options {
	return solve.Options{
		Budgets:         cfg.Budgets,
		AttemptTimeout:  cfg.AttemptTimeout,
		RetryDelay:      cfg.RetryDelay,
		Markers:         answer.Markers(cfg.AnswerMarkers),
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
}

// Generators registers every configured provider. The configured default is
// used when present, otherwise the first registered provider.
func Generators(cfg *config.Config) *llm.Engines {
	type entry struct {
		g       llm.Generator
		aliases []string
	}
	var list []entry
	if cfg.GeminiAPIKey != "" {
		list = append(list, entry{g: llm.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)})
	}
	if cfg.OpenAIAPIKey != "" {
		list = append(list, entry{g: llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), aliases: []string{"openai"}})
	}
	if cfg.ChatBaseURL != "" {
		list = append(list, entry{g: llm.NewHTTPChat(cfg.ChatName, cfg.ChatBaseURL, cfg.ChatAPIKey, cfg.ChatModel)})
	}

	def := strings.ToLower(cfg.LLMDefault)
	found := false
	for _, e := range list {
		if e.g.Name() == def || contains(e.aliases, def) {
			found = true
		}
	}
	if !found && len(list) > 0 {
		def = list[0].g.Name()
	}

	engs := llm.NewEngines(def)
	for _, e := range list {
		engs.Register(e.g, e.aliases...)
	}
	return engs
}

// Recognizers registers configured OCR engines, cfg.OCREngine first.
func Recognizers(cfg *config.Config) *ocr.Engines {
	byName := map[string]ocr.Recognizer{}
	if cfg.YCOAuthToken != "" && cfg.YCFolderID != "" {
		byName["yandex"] = yandex.New(cfg.YCOAuthToken, cfg.YCFolderID)
	}
	if cfg.GeminiAPIKey != "" {
		byName["gemini"] = ocrgemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}

	engs := &ocr.Engines{}
	if r, ok := byName[cfg.OCREngine]; ok {
		engs.Register(r)
		delete(byName, cfg.OCREngine)
	}
	for _, name := range []string{"yandex", "gemini"} {
		if r, ok := byName[name]; ok {
			engs.Register(r)
		}
	}
	return engs
}

// StartSweeper schedules the stale-job sweep and returns the running cron.
func (a *App) StartSweeper(ctx context.Context) (*cron.Cron, error) {
	if err := solve.CheckStaleAfter(a.Cfg.StaleAfter, a.Runner.Options()); err != nil {
		return nil, err
	}
	c := cron.New()
	sw := solve.NewSweeper(a.Jobs, a.Cfg.StaleAfter)
	if _, err := sw.Schedule(ctx, c, a.Cfg.SweepSchedule); err != nil {
		return nil, err
	}
	c.Start()
	log.Printf("sweeper: schedule %q stale_after=%s", a.Cfg.SweepSchedule, a.Cfg.StaleAfter)
	return c, nil
}

// Shutdown waits for in-flight jobs and closes the store.
func (a *App) Shutdown(ctx context.Context) {
	if err := a.Runner.Wait(ctx); err != nil {
		log.Printf("app: in-flight jobs not finished: %v", err)
	}
	if a.repo != nil {
		_ = a.repo.DB.Close()
	}
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
