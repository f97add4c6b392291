package models

// Interpretation is the human-readable reading of a quality label.
type Interpretation struct {
	Label           QualityLabel `json:"label"`
	Band            string       `json:"band"`
	Color           string       `json:"color"`
	Message         string       `json:"message"`
	Description     string       `json:"description"`
	Recommendations []string     `json:"recommendations"`
}

// SimilarDocument is a corpus hit for a single analysed document.
type SimilarDocument struct {
	ID         string  `json:"id"`
	URL        string  `json:"url"`
	Similarity float64 `json:"similarity"`
}

// AnalysisResult is the response for a single page or text analysis.
type AnalysisResult struct {
	ID             string            `json:"id"`
	URL            string            `json:"url,omitempty"`
	Title          string            `json:"title"`
	Excerpt        string            `json:"excerpt,omitempty"`
	WordCount      int               `json:"word_count"`
	SentenceCount  int               `json:"sentence_count"`
	AvgWordLength  float64           `json:"avg_word_length"`
	Readability    float64           `json:"readability"`
	QualityLabel   QualityLabel      `json:"quality_label"`
	Confidence     float64           `json:"confidence"`
	CompositeScore float64           `json:"composite_score"`
	IsThin         bool              `json:"is_thin"`
	TopKeywords    []string          `json:"top_keywords"`
	Language       string            `json:"language,omitempty"`
	SimilarTo      []SimilarDocument `json:"similar_to"`
	Interpretation Interpretation    `json:"interpretation"`
}

// NewAnalysisResult builds the response shape from an analysed document.
func NewAnalysisResult(doc *Document) *AnalysisResult {
	keywords := doc.TopKeywords
	if keywords == nil {
		keywords = []string{}
	}
	return &AnalysisResult{
		ID:             doc.ID,
		URL:            doc.URL,
		Title:          doc.Title,
		Excerpt:        doc.Excerpt,
		WordCount:      doc.WordCount,
		SentenceCount:  doc.SentenceCount,
		AvgWordLength:  doc.AvgWordLength,
		Readability:    doc.FleschReadingEase,
		QualityLabel:   doc.QualityLabel,
		CompositeScore: doc.CompositeScore,
		IsThin:         doc.IsThin,
		TopKeywords:    keywords,
		Language:       doc.Language,
		SimilarTo:      []SimilarDocument{},
	}
}

// Comparison is the result of comparing two pages or texts.
type Comparison struct {
	A          *AnalysisResult `json:"a"`
	B          *AnalysisResult `json:"b"`
	Similarity float64         `json:"similarity"`
	Verdict    string          `json:"verdict"`
}

// Failure records a URL that could not be analysed.
type Failure struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error"`
}

// Summary aggregates a batch run.
type Summary struct {
	Analyzed    int     `json:"analyzed"`
	Failed      int     `json:"failed"`
	AvgScore    float64 `json:"avg_score"`
	HighQuality int     `json:"high_quality"`
	Thin        int     `json:"thin"`
	AvgWords    float64 `json:"avg_words"`
}

// BatchResult is the response for a batch run.
type BatchResult struct {
	RunID      string            `json:"run_id"`
	Results    []*AnalysisResult `json:"results"`
	Failures   []Failure         `json:"failures"`
	Duplicates []DuplicatePair   `json:"duplicates"`
	Summary    Summary           `json:"summary"`
}
