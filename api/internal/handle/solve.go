package handle

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"exam-solver/api/internal/exam"
	"exam-solver/api/internal/llm"
	"exam-solver/api/internal/solve"
	"exam-solver/api/internal/store"
)

type SolveRequest struct {
	Source
	JobID   string `json:"job_id,omitempty"`
	Prefix  string `json:"prefix,omitempty"`
	LLMName string `json:"llm_name,omitempty"`
}

type SolveResponse struct {
	JobID  string       `json:"job_id"`
	Status store.Status `json:"status"`
}

// Solve accepts a job and answers 202 as soon as it is recorded as running.
func (h *Handle) Solve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var gen llm.Generator
	if h.llms != nil {
		g, err := h.llms.Get(req.LLMName)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gen = g
	}

	text, err := h.resolveText(r.Context(), req.Source)
	if err != nil {
		writeSourceError(w, err)
		return
	}

	id := strings.TrimSpace(req.JobID)
	if id == "" {
		id = uuid.NewString()
	}
	lang := req.Language
	if lang == "" {
		lang = exam.DetectLanguage(text)
	}

	job, err := h.runner.Submit(r.Context(), solve.Request{
		JobID:     id,
		Text:      text,
		Prefix:    req.Prefix,
		Language:  lang,
		Generator: gen,
	})
	switch {
	case errors.Is(err, solve.ErrMissingJobID):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, solve.ErrNoGenerator):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, "solve: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, SolveResponse{JobID: job.ID, Status: job.Status})
}

// Job returns the current record of a job.
func (h *Handle) Job(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		http.Error(w, "job id required", http.StatusBadRequest)
		return
	}
	job, err := h.jobs.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "store: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
