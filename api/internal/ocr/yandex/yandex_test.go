package yandex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, ocr http.HandlerFunc) (*Engine, *int32) {
	t.Helper()
	var issued int32
	iam := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&issued, 1)
		_ = json.NewEncoder(w).Encode(map[string]string{"iamToken": "tok" + string(rune('0'+n))})
	}))
	t.Cleanup(iam.Close)
	srv := httptest.NewServer(ocr)
	t.Cleanup(srv.Close)

	e := New("oauth", "folder")
	e.URL = srv.URL
	e.iamc.URL = iam.URL
	return e, &issued
}

func TestRecognize_FullText(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok1", r.Header.Get("Authorization"))
		assert.Equal(t, "folder", r.Header.Get("x-folder-id"))
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"ko"}, req.LanguageCodes)
		assert.Equal(t, "PNG", req.MimeType)
		_, _ = w.Write([]byte(`{"result":{"textAnnotation":{"fullText":" 1. q ① a "}}}`))
	})
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0}

	out, err := e.Recognize(context.Background(), png, []string{"ko"})
	require.NoError(t, err)
	assert.Equal(t, "1. q ① a", out)
}

func TestRecognize_BlocksFallback(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"textAnnotation":{"blocks":[{"lines":[{"text":"a"},{"text":" "}]},{"lines":[{"text":"b"}]}]}}}`))
	})
	out, err := e.Recognize(context.Background(), []byte("x"), nil)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", out)
}

func TestRecognize_RefreshesTokenOn401(t *testing.T) {
	var calls int32
	e, issued := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer tok2", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"result":{"textAnnotation":{"fullText":"ok"}}}`))
	})
	out, err := e.Recognize(context.Background(), []byte("x"), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), atomic.LoadInt32(issued))
}

func TestRecognize_Error(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})
	_, err := e.Recognize(context.Background(), []byte("x"), nil)
	assert.ErrorContains(t, err, "yandex ocr 500: boom")
}
