// Package models defines core data structures for analysed documents, duplicate pairs and results.
package models

import "time"

// QualityLabel is the classifier output for a document.
type QualityLabel string

const (
	QualityLow    QualityLabel = "Low"
	QualityMedium QualityLabel = "Medium"
	QualityHigh   QualityLabel = "High"
)

// QualityLabels lists every label in classifier class order.
var QualityLabels = []QualityLabel{QualityLow, QualityMedium, QualityHigh}

// Valid reports whether l is one of Low, Medium or High.
func (l QualityLabel) Valid() bool {
	switch l {
	case QualityLow, QualityMedium, QualityHigh:
		return true
	}
	return false
}

// Features is the numeric feature set derived from a document's text.
// The first four fields are the scorer's inputs and are always populated.
type Features struct {
	WordCount         int      `json:"word_count"`
	SentenceCount     int      `json:"sentence_count"`
	FleschReadingEase float64  `json:"flesch_reading_ease"`
	AvgWordLength     float64  `json:"avg_word_length"`
	TopKeywords       []string `json:"top_keywords"`
	Language          string   `json:"language,omitempty"`
}

// Vector returns the scorer input in model feature order.
func (f Features) Vector() []float64 {
	return []float64{
		float64(f.WordCount),
		float64(f.SentenceCount),
		f.FleschReadingEase,
		f.AvgWordLength,
	}
}

// Document represents an analysed page or text.
type Document struct {
	ID       string `json:"id" db:"id"`
	URL      string `json:"url" db:"url"`
	Title    string `json:"title" db:"title"`
	BodyText string `json:"body_text,omitempty" db:"body_text"`
	Excerpt  string `json:"excerpt,omitempty" db:"excerpt"`
	Features
	QualityLabel   QualityLabel `json:"quality_label" db:"quality_label"`
	CompositeScore float64      `json:"composite_score" db:"composite_score"`
	IsThin         bool         `json:"is_thin" db:"is_thin"`
	Embedding      []float32    `json:"-" db:"embedding"`
	RunID          string       `json:"run_id,omitempty" db:"run_id"`
	AnalyzedAt     time.Time    `json:"analyzed_at" db:"analyzed_at"`
}

// DuplicatePair is a pair of documents whose embeddings are at least the duplicate threshold apart.
type DuplicatePair struct {
	URLA       string  `json:"url1"`
	URLB       string  `json:"url2"`
	Similarity float64 `json:"similarity"`
}
