package answer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testMarkers = Markers{"[ANSWERS]", "[EXPLANATIONS]"}

func TestFinalize_Complete(t *testing.T) {
	in := "[ANSWERS]\n1-③\n[EXPLANATIONS]\nbecause"
	assert.Equal(t, in, Finalize(in, testMarkers, ""))
}

func TestFinalize_MissingSecond(t *testing.T) {
	out := Finalize("[ANSWERS]\n1-③ 2-①", testMarkers, "")
	assert.True(t, HasSections(out, testMarkers))
	assert.True(t, strings.HasPrefix(out, "[ANSWERS]\n"))
	assert.Contains(t, out, "1-③ 2-①")
	assert.True(t, strings.HasSuffix(out, "[EXPLANATIONS]\n"+Placeholder))
}

func TestFinalize_MissingBoth(t *testing.T) {
	out := Finalize("  just text  ", testMarkers, "")
	assert.Equal(t, "[ANSWERS]\njust text\n\n[EXPLANATIONS]\n"+Placeholder, out)
}

func TestFinalize_WrongOrder(t *testing.T) {
	out := Finalize("[EXPLANATIONS] x [ANSWERS] y", testMarkers, "")
	assert.True(t, HasSections(out, testMarkers))
}

func TestFinalize_Empty(t *testing.T) {
	out := Finalize("", testMarkers, "")
	assert.True(t, HasSections(out, testMarkers))
}

func TestFinalize_Prefix(t *testing.T) {
	out := Finalize("[ANSWERS] a [EXPLANATIONS] b", testMarkers, "Exam #4")
	assert.Equal(t, "Exam #4\n[ANSWERS] a [EXPLANATIONS] b", out)

	again := Finalize(out, testMarkers, "Exam #4")
	assert.Equal(t, out, again)
}

func TestFinalize_PrefixAlreadyInUnstructuredText(t *testing.T) {
	out := Finalize("Вариант A\n1. ③ 2. ①", DefaultMarkers, "Вариант A")
	assert.Equal(t, "Вариант A\n### Ответы\n1. ③ 2. ①\n\n### Пояснения\n"+Placeholder, out)
	assert.Equal(t, 1, strings.Count(out, "Вариант A"))
	assert.Equal(t, out, Finalize(out, DefaultMarkers, "Вариант A"))
}

func TestHasSections(t *testing.T) {
	assert.True(t, HasSections("[ANSWERS][EXPLANATIONS]", testMarkers))
	assert.False(t, HasSections("[EXPLANATIONS][ANSWERS]", testMarkers))
	assert.False(t, HasSections("[ANSWERS]", testMarkers))
	assert.True(t, HasSections(Finalize("x", DefaultMarkers, ""), DefaultMarkers))
}
