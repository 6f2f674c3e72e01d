package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"exam-solver/api/internal/llm"
	"exam-solver/api/internal/ocr"
	"exam-solver/api/internal/solve"
	"exam-solver/api/internal/store"
)

// maxBody bounds request bodies; base64 photos of a page stay well below it.
const maxBody = 20 << 20

type Handle struct {
	jobs   store.JobStore
	runner *solve.Runner
	ocr    *ocr.Engines
	llms   *llm.Engines

	// ParseTimeout bounds synchronous OCR calls.
	ParseTimeout time.Duration
}

func New(jobs store.JobStore, runner *solve.Runner, ocrEngs *ocr.Engines, llms *llm.Engines) *Handle {
	return &Handle{
		jobs:         jobs,
		runner:       runner,
		ocr:          ocrEngs,
		llms:         llms,
		ParseTimeout: 60 * time.Second,
	}
}

// Routes registers the API on mux.
func (h *Handle) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/exam/parse", h.Parse)
	mux.HandleFunc("POST /v1/solve", h.Solve)
	mux.HandleFunc("GET /v1/jobs/{id}", h.Job)
	mux.HandleFunc("GET /healthz", h.Healthz)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if p, ok := h.jobs.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
