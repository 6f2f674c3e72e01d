package handle

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"exam-solver/api/internal/ocr"
	"exam-solver/api/internal/util"
)

// Source is the document part shared by parse and solve requests: either
// ready text or a base64 image (plain or data URL) to be recognized.
type Source struct {
	Image    string `json:"image,omitempty"`
	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
	OCR      string `json:"ocr,omitempty"` // имя OCR-движка; пустое значение выбирает движок по умолчанию
}

// sourceError carries the HTTP status for a failed text resolution.
type sourceError struct {
	code int
	msg  string
}

func (e *sourceError) Error() string { return e.msg }

// resolveText returns the document text, running OCR when only an image is given.
func (h *Handle) resolveText(ctx context.Context, s Source) (string, error) {
	if strings.TrimSpace(s.Text) != "" {
		return s.Text, nil
	}
	if strings.TrimSpace(s.Image) == "" {
		return "", &sourceError{http.StatusBadRequest, "either image or text is required"}
	}
	img, _, err := util.DecodeBase64MaybeDataURL(s.Image)
	if err != nil || len(img) == 0 {
		return "", &sourceError{http.StatusBadRequest, "bad image"}
	}
	if h.ocr == nil {
		return "", &sourceError{http.StatusBadGateway, "ocr: no engines configured"}
	}
	eng, err := h.ocr.Get(s.OCR)
	if err != nil {
		return "", &sourceError{http.StatusBadRequest, err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, h.ParseTimeout)
	defer cancel()
	start := time.Now()
	text, err := eng.Recognize(ctx, img, ocr.LanguageCodes(s.Language))
	if err != nil {
		return "", &sourceError{http.StatusBadGateway, fmt.Sprintf("ocr error: %v", err)}
	}
	log.Printf("ocr: engine=%s bytes=%d chars=%d in %s", eng.Name(), len(img), len(text), time.Since(start))
	return text, nil
}

func writeSourceError(w http.ResponseWriter, err error) {
	if se, ok := err.(*sourceError); ok {
		http.Error(w, se.msg, se.code)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
