// Package pipeline runs the analysis flow: extract page text, compute features and an embedding,
// score quality, look up similar corpus documents, and persist the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/pagegrade/internal/config"
	"github.com/hyperjump/pagegrade/internal/docid"
	"github.com/hyperjump/pagegrade/internal/embedding"
	"github.com/hyperjump/pagegrade/internal/extract"
	"github.com/hyperjump/pagegrade/internal/features"
	"github.com/hyperjump/pagegrade/internal/fetch"
	"github.com/hyperjump/pagegrade/internal/metrics"
	"github.com/hyperjump/pagegrade/internal/models"
	"github.com/hyperjump/pagegrade/internal/scoring"
	"github.com/hyperjump/pagegrade/internal/storage"
	"github.com/hyperjump/pagegrade/internal/vector"
	"github.com/hyperjump/pagegrade/pkg/utils"
)

// Input sources, used for metrics and persistence decisions.
const (
	SourceURL  = "url"
	SourceHTML = "html"
	SourceText = "text"
	SourceFile = "file"
)

// ErrNoStorage is returned by corpus operations when the analyzer has no storage.
var ErrNoStorage = errors.New("no document storage configured")

// Fetcher downloads pages.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Result, error)
}

// Analyzer runs documents through extraction, features, embedding and scoring.
type Analyzer struct {
	engine    *features.Engine
	embedder  embedding.Embedder
	scorer    *scoring.Scorer
	cfg       config.ScoringConfig
	fetcher   Fetcher
	extractor *extract.Extractor
	store     storage.Storage
	index     vector.Index
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithFetcher sets the page downloader used for URL inputs.
func WithFetcher(f Fetcher) Option {
	return func(a *Analyzer) { a.fetcher = f }
}

// WithExtractor sets the file extractor used by AnalyzeFile.
func WithExtractor(e *extract.Extractor) Option {
	return func(a *Analyzer) { a.extractor = e }
}

// WithStorage enables persistence of analysed documents.
func WithStorage(s storage.Storage) Option {
	return func(a *Analyzer) { a.store = s }
}

// WithIndex enables corpus similarity lookups.
func WithIndex(idx vector.Index) Option {
	return func(a *Analyzer) { a.index = idx }
}

// WithMetrics records analyses and fetch failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// New returns an Analyzer. Storage, index, fetcher and extractor are optional.
func New(engine *features.Engine, embedder embedding.Embedder, scorer *scoring.Scorer, cfg config.ScoringConfig, opts ...Option) *Analyzer {
	a := &Analyzer{
		engine:   engine,
		embedder: embedder,
		scorer:   scorer,
		cfg:      cfg,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.extractor == nil {
		a.extractor = extract.NewExtractor(0)
	}
	return a
}

// input is one document ready for feature extraction.
type input struct {
	id     string
	url    string
	page   extract.Page
	source string
}

// Analyze dispatches req to AnalyzeText, AnalyzeHTML or AnalyzeURL.
func (a *Analyzer) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	switch {
	case req.Text != "":
		return a.AnalyzeText(ctx, req.Text)
	case req.HTML != "":
		return a.AnalyzeHTML(ctx, req.URL, req.HTML)
	default:
		return a.AnalyzeURL(ctx, req.URL)
	}
}

// AnalyzeURL downloads rawURL and analyses the page. Download failures are returned as *fetch.Error.
func (a *Analyzer) AnalyzeURL(ctx context.Context, rawURL string) (*models.AnalysisResult, error) {
	_, result, err := a.analyzeURL(ctx, rawURL)
	return result, err
}

func (a *Analyzer) analyzeURL(ctx context.Context, rawURL string) (*models.Document, *models.AnalysisResult, error) {
	start := time.Now()
	page, err := a.fetchPage(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	return a.run(ctx, input{id: docid.ForURL(rawURL), url: rawURL, page: page, source: SourceURL}, start)
}

// AnalyzeHTML analyses raw HTML. pageURL may be empty; it identifies the document when set.
func (a *Analyzer) AnalyzeHTML(ctx context.Context, pageURL, rawHTML string) (*models.AnalysisResult, error) {
	start := time.Now()
	page := htmlPage(pageURL, rawHTML)
	id := docid.ForText(page.BodyText)
	if pageURL != "" {
		id = docid.ForURL(pageURL)
	}
	_, result, err := a.run(ctx, input{id: id, url: pageURL, page: page, source: SourceHTML}, start)
	return result, err
}

// AnalyzeText analyses plain text.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) (*models.AnalysisResult, error) {
	_, result, err := a.analyzeText(ctx, text)
	return result, err
}

func (a *Analyzer) analyzeText(ctx context.Context, text string) (*models.Document, *models.AnalysisResult, error) {
	return a.run(ctx, input{id: docid.ForText(text), page: textPage(text), source: SourceText}, time.Now())
}

// AnalyzeFile extracts and analyses a local document. The document ID is derived from the
// absolute path so re-analysing a file replaces its stored result.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*models.AnalysisResult, error) {
	start := time.Now()
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	page, err := a.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	a.logger.Debug("File extracted", zap.String("path", absPath), zap.Int("words", page.WordCount))
	_, result, err := a.run(ctx, input{id: docid.ForFile(absPath), url: "file://" + filepath.ToSlash(absPath), page: page, source: SourceFile}, start)
	return result, err
}

// RemoveFile deletes the stored analysis of a local document, if any.
func (a *Analyzer) RemoveFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	err = a.Delete(ctx, docid.ForFile(absPath))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func (a *Analyzer) fetchPage(ctx context.Context, rawURL string) (extract.Page, error) {
	if a.fetcher == nil {
		return extract.Page{}, fmt.Errorf("no fetcher configured for %s", rawURL)
	}
	res, err := a.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		status := 0
		if fe, ok := fetch.AsError(err); ok {
			status = fe.StatusCode
		}
		a.metrics.ObserveFetchFailure(status)
		a.logger.Warn("Fetch failed", zap.String("url", rawURL), zap.Error(err))
		return extract.Page{}, err
	}
	return htmlPage(res.FinalURL, res.HTML), nil
}

func htmlPage(pageURL, rawHTML string) extract.Page {
	page := extract.ParseHTML(rawHTML)
	extract.Enrich(&page, rawHTML, pageURL)
	return page
}

func textPage(text string) extract.Page {
	body := utils.CollapseWhitespace(text)
	return extract.Page{BodyText: body, WordCount: extract.CountWords(body)}
}

// run analyses a single input. Keywords are ranked within the document alone.
func (a *Analyzer) run(ctx context.Context, in input, start time.Time) (*models.Document, *models.AnalysisResult, error) {
	feats := a.engine.Extract(in.page.BodyText)
	vec, err := a.embedder.Embed(ctx, features.Clean(in.page.BodyText))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	doc, result, err := a.assemble(in, feats, vec)
	if err != nil {
		return nil, nil, err
	}

	if result.SimilarTo, err = a.similar(ctx, doc); err != nil {
		return nil, nil, err
	}
	if a.shouldPersist(in) {
		if err := a.persist(ctx, doc); err != nil {
			return nil, nil, err
		}
	}

	a.metrics.ObserveAnalysis(in.source, string(doc.QualityLabel), time.Since(start))
	a.logger.Debug("Document analysed",
		zap.String("id", doc.ID),
		zap.String("source", in.source),
		zap.String("label", string(doc.QualityLabel)),
		zap.Float64("score", doc.CompositeScore))
	return doc, result, nil
}

// assemble scores the features and builds the stored document and its response shape.
func (a *Analyzer) assemble(in input, feats models.Features, vec []float32) (*models.Document, *models.AnalysisResult, error) {
	assessment, err := a.scorer.Assess(feats)
	if err != nil {
		return nil, nil, err
	}
	doc := &models.Document{
		ID:             in.id,
		URL:            in.url,
		Title:          in.page.Title,
		BodyText:       in.page.BodyText,
		Excerpt:        in.page.Excerpt,
		Features:       feats,
		QualityLabel:   assessment.Label,
		CompositeScore: assessment.CompositeScore,
		IsThin:         assessment.IsThin,
		Embedding:      vec,
		AnalyzedAt:     time.Now().UTC(),
	}
	result := models.NewAnalysisResult(doc)
	result.Confidence = assessment.Confidence
	result.Interpretation = assessment.Interpretation
	return doc, result, nil
}

func (a *Analyzer) shouldPersist(in input) bool {
	if a.store == nil {
		return false
	}
	if in.url == "" {
		return a.cfg.PersistTextAnalyses
	}
	return true
}

// similar returns stored documents whose embeddings reach the duplicate threshold.
func (a *Analyzer) similar(ctx context.Context, doc *models.Document) ([]models.SimilarDocument, error) {
	out := []models.SimilarDocument{}
	if a.index == nil || a.cfg.SimilarLimit <= 0 || a.index.Size() == 0 {
		return out, nil
	}
	hits, err := a.index.SimilarTo(ctx, doc.ID, doc.Embedding, a.cfg.DuplicateThreshold, a.cfg.SimilarLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query corpus index: %w", err)
	}
	for _, h := range hits {
		sd := models.SimilarDocument{ID: h.ID, Similarity: h.Score}
		if a.store != nil {
			if stored, err := a.store.GetDocument(ctx, h.ID); err == nil {
				sd.URL = stored.URL
			}
		}
		out = append(out, sd)
	}
	return out, nil
}

func (a *Analyzer) persist(ctx context.Context, doc *models.Document) error {
	if err := a.store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	if a.index != nil && len(doc.Embedding) > 0 {
		if err := a.index.Add(ctx, []string{doc.ID}, [][]float32{doc.Embedding}); err != nil {
			return fmt.Errorf("failed to index embedding: %w", err)
		}
		a.metrics.SetCorpusSize(a.index.Size())
	}
	return nil
}

// Compare analyses two URLs or two texts and reports their embedding similarity.
func (a *Analyzer) Compare(ctx context.Context, req models.CompareRequest) (*models.Comparison, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	analyze := a.analyzeURL
	first, second := req.URLA, req.URLB
	if req.ByText() {
		analyze = a.analyzeText
		first, second = req.TextA, req.TextB
	}
	docA, ra, err := analyze(ctx, first)
	if err != nil {
		return nil, err
	}
	docB, rb, err := analyze(ctx, second)
	if err != nil {
		return nil, err
	}
	sim := vector.Cosine(docA.Embedding, docB.Embedding)
	return &models.Comparison{A: ra, B: rb, Similarity: sim, Verdict: vector.Verdict(sim)}, nil
}
