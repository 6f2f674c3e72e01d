package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Генераторы
	LLMDefault    string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	ChatName      string
	ChatBaseURL   string
	ChatAPIKey    string
	ChatModel     string

	// OCR
	OCREngine    string
	OCRLangs     string
	YCOAuthToken string
	YCFolderID   string

	// Хранилище задач; DATABASE_URL / POSTGRES_* читает store.ResolveDSN
	SQLitePath string

	TelegramBotToken string
	WebhookURL       string

	// Solve pipeline
	Budgets         []int
	AttemptTimeout  time.Duration
	RetryDelay      time.Duration
	Temperature     float32
	MaxOutputTokens int
	AnswerMarkers   [2]string
	StaleAfter      time.Duration
	SweepSchedule   string
	ParseTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// допускаем голые секунды: ATTEMPT_TIMEOUT=45
		if n, nerr := strconv.Atoi(v); nerr == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
		log.Printf("config: bad %s=%q, using %s", k, v, def)
		return def
	}
	return d
}

func getInt(k string, def int) int {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: bad %s=%q, using %d", k, v, def)
		return def
	}
	return n
}

func getFloat(k string, def float32) float32 {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		log.Printf("config: bad %s=%q, using %v", k, v, def)
		return def
	}
	return float32(f)
}

// getInts parses a comma-separated list, e.g. SOLVE_BUDGETS=6000,3000.
func getInts(k string, def []int) []int {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	var out []int
	for _, p := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			log.Printf("config: bad %s=%q, using %v", k, v, def)
			return def
		}
		out = append(out, n)
	}
	return out
}

// Load reads the environment, after merging an optional .env file.
// Provider keys are optional: unconfigured providers are simply not registered.
func Load() *Config {
	if err := godotenv.Load(getEnv("ENV_FILE", ".env")); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env: %v", err)
	}

	cfg := &Config{
		Port: getEnv("PORT", "8000"),

		LLMDefault:    strings.ToLower(getEnv("LLM_DEFAULT", "gemini")),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		ChatName:      strings.ToLower(getEnv("CHAT_NAME", "chat")),
		ChatBaseURL:   getEnv("CHAT_BASE_URL", ""),
		ChatAPIKey:    getEnv("CHAT_API_KEY", ""),
		ChatModel:     getEnv("CHAT_MODEL", ""),

		OCREngine:    strings.ToLower(getEnv("OCR_ENGINE", "yandex")),
		OCRLangs:     getEnv("OCR_LANGS", ""),
		YCOAuthToken: getEnv("YC_OAUTH_TOKEN", ""),
		YCFolderID:   getEnv("YC_FOLDER_ID", ""),

		SQLitePath: getEnv("SQLITE_PATH", "exam-solver.db"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		Budgets:         getInts("SOLVE_BUDGETS", []int{6000, 3000}),
		AttemptTimeout:  getDuration("ATTEMPT_TIMEOUT", 45*time.Second),
		RetryDelay:      getDuration("RETRY_DELAY", 500*time.Millisecond),
		Temperature:     getFloat("LLM_TEMPERATURE", 0.2),
		MaxOutputTokens: getInt("LLM_MAX_OUTPUT_TOKENS", 2048),
		AnswerMarkers: [2]string{
			getEnv("ANSWER_MARKER", "### Ответы"),
			getEnv("EXPLANATION_MARKER", "### Пояснения"),
		},
		StaleAfter:      getDuration("STALE_AFTER", 10*time.Minute),
		SweepSchedule:   getEnv("SWEEP_SCHEDULE", "@every 5m"),
		ParseTimeout:    getDuration("PARSE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 2*time.Minute),
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// Validate проверяет, что свипер не закроет job, который ещё генерируется:
// STALE_AFTER должен быть больше всех попыток с таймаутами и паузами между ними.
func (c *Config) Validate() error {
	n := time.Duration(len(c.Budgets))
	if n == 0 || c.AttemptTimeout <= 0 {
		return nil // solve подставит свои значения, их проверит app.StartSweeper
	}
	longest := n*c.AttemptTimeout + (n-1)*max(c.RetryDelay, 0)
	if c.StaleAfter <= longest {
		return fmt.Errorf("STALE_AFTER=%s must exceed the longest run %s (SOLVE_BUDGETS x ATTEMPT_TIMEOUT + RETRY_DELAY)", c.StaleAfter, longest)
	}
	return nil
}

// LoadBot is Load plus the settings the Telegram bot cannot start without.
func LoadBot() *Config {
	cfg := Load()
	cfg.TelegramBotToken = mustEnv("TELEGRAM_BOT_TOKEN")
	return cfg
}
