package features

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  Hello\n\tWORLD  ", "hello world"},
		{"Already clean", "already clean"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clean(tt.in))
	}
}

func TestComputeBasic_empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		b := ComputeBasic(in)
		assert.Equal(t, Basic{}, b, "input %q", in)
	}
}

func TestComputeBasic(t *testing.T) {
	text := "The cat sat on the mat. The dog ran far away. Birds fly south in winter."
	b := ComputeBasic(text)
	assert.Equal(t, 16, b.WordCount)
	assert.Equal(t, 3, b.SentenceCount)
	wantAvg := float64(len(strings.ReplaceAll(text, " ", ""))) / 16
	assert.InDelta(t, wantAvg, b.AvgWordLength, 1e-9)
	assert.False(t, math.IsNaN(b.FleschReadingEase) || math.IsInf(b.FleschReadingEase, 0))
	assert.Greater(t, b.FleschReadingEase, 80.0, "short monosyllabic sentences read easily")
}

func TestComputeBasic_deterministic(t *testing.T) {
	text := strings.Repeat("Consistent analysis requires deterministic feature extraction. ", 20)
	assert.Equal(t, ComputeBasic(text), ComputeBasic(text))
}

func TestComputeBasic_wordCountNeverNegative(t *testing.T) {
	for _, in := range []string{"...", "!!! ???", "a", "1 2 3"} {
		b := ComputeBasic(in)
		assert.GreaterOrEqual(t, b.WordCount, 0)
		assert.False(t, math.IsNaN(b.FleschReadingEase))
	}
}

func TestFleschReadingEase(t *testing.T) {
	tests := []struct {
		name                        string
		words, sentences, syllables int
		want                        float64
	}{
		{"no words", 0, 0, 0, 0},
		{"simple", 10, 2, 15, 74.86},
		{"zero sentences counts as one", 5, 0, 5, 117.16},
		{"dense", 100, 4, 150, 54.56},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FleschReadingEase(tt.words, tt.sentences, tt.syllables), 1e-9)
		})
	}
}

func TestCountSyllables(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"", 0},
		{"123", 0},
		{"the", 1},
		{"cat", 1},
		{"make", 1},
		{"free", 1},
		{"whole", 1},
		{"table", 2},
		{"reading", 2},
		{"jumped", 1},
		{"wanted", 2},
		{"played", 1},
		{"syllable", 3},
		{"beautiful", 3},
		{"readability.", 5},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, CountSyllables(tt.word))
		})
	}
}

func TestCountSentences(t *testing.T) {
	assert.Equal(t, 0, CountSentences(""))
	assert.Equal(t, 1, CountSentences("no terminal punctuation here"))
	assert.Equal(t, 2, CountSentences("first one here. second one there."))
}

func TestKeywords_singleDocument(t *testing.T) {
	e := NewEngine(WithLanguageDetection(false))
	text := "Coffee brewing guide. Coffee beans, coffee grinders and brewing temperature. The best coffee."
	kw := e.Keywords([]string{text})
	require.Len(t, kw, 1)
	require.NotEmpty(t, kw[0])
	assert.Equal(t, "coffee", kw[0][0])
	assert.Equal(t, "brewing", kw[0][1])
	assert.LessOrEqual(t, len(kw[0]), 5)
	for _, k := range kw[0] {
		assert.NotEqual(t, "the", k, "stop words must be removed")
		assert.GreaterOrEqual(t, len(k), 2)
	}
}

func TestKeywords_batchMinDF(t *testing.T) {
	e := NewEngine(WithLanguageDetection(false))
	texts := []string{
		"solar panels convert sunlight solar energy",
		"solar farms produce energy for cities",
		"unrelated gardening tulips",
	}
	kw := e.Keywords(texts)
	require.Len(t, kw, 3)
	// Only "solar" and "energy" appear in at least two documents.
	assert.ElementsMatch(t, []string{"solar", "energy"}, kw[0])
	assert.Equal(t, "solar", kw[0][0])
	assert.ElementsMatch(t, []string{"solar", "energy"}, kw[1])
	assert.Empty(t, kw[2])
	assert.NotNil(t, kw[2])
}

func TestKeywords_tieBreakAlphabetical(t *testing.T) {
	e := NewEngine(WithLanguageDetection(false), WithTopKeywords(3))
	kw := e.Keywords([]string{"zebra apple mango kiwi"})
	assert.Equal(t, []string{"apple", "kiwi", "mango"}, kw[0])
}

func TestKeywords_maxFeatures(t *testing.T) {
	e := NewEngine(WithLanguageDetection(false), WithMaxFeatures(1))
	kw := e.Keywords([]string{"rare common common common"})
	assert.Equal(t, []string{"common"}, kw[0])
}

func TestKeywords_emptyInputs(t *testing.T) {
	e := NewEngine(WithLanguageDetection(false))
	assert.Empty(t, e.Keywords(nil))
	kw := e.Keywords([]string{"", "   "})
	require.Len(t, kw, 2)
	assert.Empty(t, kw[0])
	assert.Empty(t, kw[1])
}

func TestTFIDF_rowsNormalised(t *testing.T) {
	e := NewEngine(WithLanguageDetection(false))
	rows := e.tfidf([]string{"alpha beta beta gamma", "alpha beta delta"})
	for _, row := range rows {
		var sum float64
		for _, tw := range row {
			sum += tw.weight * tw.weight
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestExtract(t *testing.T) {
	e := NewEngine(WithLanguageDetection(false))
	f := e.Extract("Search engines reward helpful content. Helpful content answers questions.")
	assert.Equal(t, 9, f.WordCount)
	assert.Equal(t, 2, f.SentenceCount)
	assert.Contains(t, f.TopKeywords, "helpful")
	assert.Equal(t, "", f.Language)
}

func TestExtractBatch_matchesBasic(t *testing.T) {
	e := NewEngine(WithLanguageDetection(false))
	texts := []string{"one two three.", "four five six seven."}
	got := e.ExtractBatch(texts)
	require.Len(t, got, 2)
	for i, txt := range texts {
		b := ComputeBasic(txt)
		assert.Equal(t, b.WordCount, got[i].WordCount)
		assert.Equal(t, b.SentenceCount, got[i].SentenceCount)
		assert.Equal(t, b.FleschReadingEase, got[i].FleschReadingEase)
	}
}

func TestLanguage(t *testing.T) {
	e := NewEngine()
	assert.Equal(t, "", e.Language("   "))
	assert.Equal(t, "en", e.Language("This is clearly an English sentence about the weather and the news today."))
	assert.Equal(t, "de", e.Language("Dies ist eindeutig ein deutscher Satz über das Wetter und die Nachrichten von heute."))

	off := NewEngine(WithLanguageDetection(false))
	assert.Equal(t, "", off.Language("This is clearly an English sentence."))
}
