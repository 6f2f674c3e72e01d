package handle

import (
	"net/http"

	"exam-solver/api/internal/exam"
)

type ParseRequest struct {
	Source
}

// Parse segments an exam page into questions. An empty parse is still 200
// with ok=false and a sample of the normalized text.
func (h *Handle) Parse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	text, err := h.resolveText(r.Context(), req.Source)
	if err != nil {
		writeSourceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exam.Parse(text))
}
