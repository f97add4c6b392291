// Package features derives lexical, readability and keyword features from page text.
package features

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/pemistahl/lingua-go"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/hyperjump/pagegrade/internal/models"
	"github.com/hyperjump/pagegrade/pkg/utils"
)

// Basic holds the scorer features computed from a single text.
type Basic struct {
	WordCount         int
	SentenceCount     int
	FleschReadingEase float64
	AvgWordLength     float64
}

// Engine computes document features. It is safe for concurrent use.
type Engine struct {
	topKeywords    int
	maxFeatures    int
	detectLanguage bool
	logger         *zap.Logger

	analyze func([]byte) analysis.TokenStream

	langOnce     sync.Once
	langDetector lingua.LanguageDetector
}

// Option configures an Engine.
type Option func(*Engine)

// WithTopKeywords sets how many keywords are kept per document.
func WithTopKeywords(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topKeywords = n
		}
	}
}

// WithMaxFeatures caps the TF-IDF vocabulary to the n most frequent terms.
func WithMaxFeatures(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxFeatures = n
		}
	}
}

// WithLanguageDetection enables or disables language detection.
func WithLanguageDetection(enabled bool) Option {
	return func(e *Engine) {
		e.detectLanguage = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine returns an Engine with 5 keywords per document, a 1000-term vocabulary
// and language detection enabled, unless overridden by opts.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		topKeywords:    5,
		maxFeatures:    1000,
		detectLanguage: true,
		logger:         zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	if a := bleve.NewIndexMapping().AnalyzerNamed(standard.Name); a != nil {
		e.analyze = a.Analyze
	}
	return e
}

// Clean lowercases text and collapses whitespace runs to single spaces.
func Clean(text string) string {
	return utils.CollapseWhitespace(strings.ToLower(text))
}

// ComputeBasic returns word count, sentence count, Flesch reading ease and average word length
// of the cleaned text. Empty text yields all zeros.
func ComputeBasic(text string) Basic {
	clean := Clean(text)
	words := strings.Fields(clean)
	if len(words) == 0 {
		return Basic{}
	}

	lengths := make([]float64, len(words))
	syllables := 0
	for i, w := range words {
		lengths[i] = float64(utf8.RuneCountInString(w))
		syllables += CountSyllables(w)
	}
	sentences := CountSentences(clean)

	return Basic{
		WordCount:         len(words),
		SentenceCount:     sentences,
		FleschReadingEase: FleschReadingEase(len(words), sentences, syllables),
		AvgWordLength:     stat.Mean(lengths, nil),
	}
}

// FleschReadingEase computes 206.835 - 1.015*(words/sentences) - 84.6*(syllables/words),
// rounded to two decimals. Zero words yields 0; zero sentences counts as one.
func FleschReadingEase(words, sentences, syllables int) float64 {
	if words <= 0 {
		return 0
	}
	if sentences <= 0 {
		sentences = 1
	}
	score := 206.835 - 1.015*(float64(words)/float64(sentences)) - 84.6*(float64(syllables)/float64(words))
	return utils.Round(score, 2)
}

// Extract computes the full feature set for a single document. Keywords are
// ranked within the document alone.
func (e *Engine) Extract(text string) models.Features {
	return e.ExtractBatch([]string{text})[0]
}

// ExtractBatch computes features for every text, ranking keywords by TF-IDF across the batch.
func (e *Engine) ExtractBatch(texts []string) []models.Features {
	keywords := e.Keywords(texts)
	out := make([]models.Features, len(texts))
	for i, t := range texts {
		b := ComputeBasic(t)
		out[i] = models.Features{
			WordCount:         b.WordCount,
			SentenceCount:     b.SentenceCount,
			FleschReadingEase: b.FleschReadingEase,
			AvgWordLength:     b.AvgWordLength,
			TopKeywords:       keywords[i],
			Language:          e.Language(t),
		}
	}
	return out
}

// Language returns the lowercase ISO 639-1 code of text's language, or "" when it cannot be
// determined or detection is disabled.
func (e *Engine) Language(text string) string {
	if !e.detectLanguage || strings.TrimSpace(text) == "" {
		return ""
	}
	e.langOnce.Do(func() {
		e.langDetector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.French, lingua.German, lingua.Spanish,
				lingua.Portuguese, lingua.Italian, lingua.Dutch).
			Build()
	})
	lang, ok := e.langDetector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
