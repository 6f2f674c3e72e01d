package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageCodes(t *testing.T) {
	assert.Equal(t, []string{"ko"}, LanguageCodes("ko-KR"))
	assert.Equal(t, []string{"ru", "en"}, LanguageCodes("ru, en-US ,ru"))
	assert.Equal(t, DefaultLangs, LanguageCodes(""))
	assert.Equal(t, DefaultLangs, LanguageCodes("!!"))
}

type fakeRecognizer struct{ name string }

func (f fakeRecognizer) Name() string { return f.name }
func (f fakeRecognizer) Recognize(context.Context, []byte, []string) (string, error) {
	return f.name, nil
}

func TestEngines_Get(t *testing.T) {
	var e Engines
	_, err := e.Get("")
	assert.Error(t, err)

	e.Register(fakeRecognizer{name: "yandex"})
	e.Register(fakeRecognizer{name: "gemini"})

	r, err := e.Get("")
	require.NoError(t, err)
	assert.Equal(t, "yandex", r.Name())

	r, err = e.Get("Gemini")
	require.NoError(t, err)
	assert.Equal(t, "gemini", r.Name())

	_, err = e.Get("tesseract")
	assert.Error(t, err)
}

func TestEngines_SkipsTypedNil(t *testing.T) {
	var e Engines
	var r *fakeRecognizer
	e.Register(r)
	e.Register(nil)
	_, err := e.Get("")
	assert.Error(t, err)
}
