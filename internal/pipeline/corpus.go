package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/pagegrade/internal/models"
	"github.com/hyperjump/pagegrade/internal/scoring"
	"github.com/hyperjump/pagegrade/internal/storage"
	"github.com/hyperjump/pagegrade/internal/vector"
)

// Status summarises the stored corpus and loaded models.
type Status struct {
	Documents           int64             `json:"documents"`
	IndexSize           int               `json:"index_size"`
	EmbeddingDimensions int               `json:"embedding_dimensions"`
	DuplicateThreshold  float64           `json:"duplicate_threshold"`
	ThinThreshold       int               `json:"thin_threshold"`
	Model               scoring.ModelInfo `json:"model"`
}

// Status reports document count, index size and model details.
func (a *Analyzer) Status(ctx context.Context) (*Status, error) {
	st := &Status{
		EmbeddingDimensions: a.embedder.Dimensions(),
		DuplicateThreshold:  a.cfg.DuplicateThreshold,
		ThinThreshold:       a.scorer.ThinThreshold(),
		Model:               a.scorer.Info(),
	}
	if a.store != nil {
		n, err := a.store.CountDocuments(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count documents: %w", err)
		}
		st.Documents = n
	}
	if a.index != nil {
		st.IndexSize = a.index.Size()
	}
	return st, nil
}

// Document returns the stored analysis for id.
func (a *Analyzer) Document(ctx context.Context, id string) (*models.AnalysisResult, error) {
	if a.store == nil {
		return nil, ErrNoStorage
	}
	doc, err := a.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.storedResult(doc), nil
}

// Documents lists stored analyses, newest first.
func (a *Analyzer) Documents(ctx context.Context, offset, limit int) ([]*models.AnalysisResult, error) {
	if a.store == nil {
		return nil, ErrNoStorage
	}
	docs, err := a.store.ListDocuments(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*models.AnalysisResult, len(docs))
	for i, d := range docs {
		out[i] = a.storedResult(d)
	}
	return out, nil
}

func (a *Analyzer) storedResult(doc *models.Document) *models.AnalysisResult {
	res := models.NewAnalysisResult(doc)
	res.Confidence = a.scorer.Confidence(doc.Features, doc.QualityLabel)
	res.Interpretation = scoring.Interpret(doc.QualityLabel, doc.Features, doc.CompositeScore)
	return res
}

// Delete removes a document from storage and the corpus index.
func (a *Analyzer) Delete(ctx context.Context, id string) error {
	if a.store == nil {
		return ErrNoStorage
	}
	if err := a.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if a.index != nil {
		if err := a.index.Remove(ctx, []string{id}); err != nil {
			return fmt.Errorf("failed to delete from corpus index: %w", err)
		}
		a.metrics.SetCorpusSize(a.index.Size())
	}
	a.logger.Debug("Document deleted", zap.String("id", id))
	return nil
}

// Duplicates returns duplicate pairs over every stored document.
func (a *Analyzer) Duplicates(ctx context.Context) ([]models.DuplicatePair, error) {
	if a.store == nil {
		return nil, ErrNoStorage
	}
	recs, err := a.store.Embeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	recs = a.compatible(recs)
	vecs := make([][]float32, len(recs))
	for i, r := range recs {
		vecs[i] = r.Vector
	}
	pairs, err := vector.FindDuplicates(vecs, a.cfg.DuplicateThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicates: %w", err)
	}
	out := make([]models.DuplicatePair, len(pairs))
	for i, p := range pairs {
		out[i] = models.DuplicatePair{
			URLA:       labelOf(recs[p.I].URL, recs[p.I].ID),
			URLB:       labelOf(recs[p.J].URL, recs[p.J].ID),
			Similarity: p.Similarity,
		}
	}
	return out, nil
}

func labelOf(url, id string) string {
	if url != "" {
		return url
	}
	return id
}

// RebuildIndex replaces the corpus index contents with the stored embeddings.
// Embeddings whose dimension differs from the current embedder are skipped.
func (a *Analyzer) RebuildIndex(ctx context.Context) (int, error) {
	if a.store == nil || a.index == nil {
		return 0, nil
	}
	recs, err := a.store.Embeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load embeddings: %w", err)
	}
	recs = a.compatible(recs)
	ids := make([]string, len(recs))
	vecs := make([][]float32, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
		vecs[i] = r.Vector
	}
	if err := a.index.Reset(ids, vecs); err != nil {
		return 0, fmt.Errorf("failed to rebuild corpus index: %w", err)
	}
	a.metrics.SetCorpusSize(len(ids))
	return len(ids), nil
}

// LoadIndex loads the corpus index from path and rebuilds it from storage when the file
// is missing, unreadable or out of step with the stored documents.
func (a *Analyzer) LoadIndex(ctx context.Context, path string) error {
	if a.index == nil {
		return nil
	}
	loadErr := a.index.Load(path)
	if loadErr == nil && a.store == nil {
		return nil
	}
	if loadErr == nil {
		recs, err := a.store.Embeddings(ctx)
		if err != nil {
			return fmt.Errorf("failed to load embeddings: %w", err)
		}
		if len(a.compatible(recs)) == a.index.Size() {
			a.metrics.SetCorpusSize(a.index.Size())
			return nil
		}
	}
	if loadErr != nil {
		a.logger.Warn("Corpus index unreadable, rebuilding from storage", zap.String("path", path), zap.Error(loadErr))
	}
	n, err := a.RebuildIndex(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("Corpus index rebuilt", zap.Int("documents", n))
	return nil
}

// SaveIndex writes the corpus index to path.
func (a *Analyzer) SaveIndex(path string) error {
	if a.index == nil {
		return nil
	}
	return a.index.Save(path)
}

func (a *Analyzer) compatible(recs []storage.EmbeddingRecord) []storage.EmbeddingRecord {
	dims := a.embedder.Dimensions()
	out := recs[:0:0]
	for _, r := range recs {
		if len(r.Vector) == dims {
			out = append(out, r)
		}
	}
	return out
}
