package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/pagegrade/internal/docid"
	"github.com/hyperjump/pagegrade/internal/features"
	"github.com/hyperjump/pagegrade/internal/fetch"
	"github.com/hyperjump/pagegrade/internal/models"
	"github.com/hyperjump/pagegrade/internal/vector"
	"github.com/hyperjump/pagegrade/pkg/utils"
)

// Batch analyses every row of req. Rows with html_content are parsed directly; the rest are
// downloaded. Download failures are listed in the result and do not stop the run. Keywords
// are ranked by TF-IDF across the whole batch, and duplicate pairs are reported among the
// analysed rows.
func (a *Analyzer) Batch(ctx context.Context, req models.BatchRequest) (*models.BatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	start := time.Now()
	logger := a.logger.With(zap.String("run_id", runID))
	logger.Info("Batch started", zap.Int("rows", len(req.Rows)))

	result := &models.BatchResult{
		RunID:      runID,
		Results:    []*models.AnalysisResult{},
		Failures:   []models.Failure{},
		Duplicates: []models.DuplicatePair{},
	}

	inputs := make([]input, 0, len(req.Rows))
	for _, row := range req.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in := input{id: docid.ForURL(row.URL), url: row.URL, source: SourceHTML}
		if row.HTMLContent != "" {
			in.page = htmlPage(row.URL, row.HTMLContent)
		} else {
			page, err := a.fetchPage(ctx, row.URL)
			if err != nil {
				result.Failures = append(result.Failures, failureFor(row.URL, err))
				continue
			}
			in.page = page
			in.source = SourceURL
		}
		inputs = append(inputs, in)
	}

	if len(inputs) > 0 {
		docs, err := a.analyzeBatch(ctx, runID, inputs, result, start)
		if err != nil {
			return nil, err
		}
		if result.Duplicates, err = a.batchDuplicates(docs); err != nil {
			return nil, err
		}
		a.metrics.AddDuplicates(len(result.Duplicates))
	}

	result.Summary = summarize(result)
	logger.Info("Batch finished",
		zap.Int("analyzed", result.Summary.Analyzed),
		zap.Int("failed", result.Summary.Failed),
		zap.Int("duplicates", len(result.Duplicates)),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (a *Analyzer) analyzeBatch(ctx context.Context, runID string, inputs []input, result *models.BatchResult, start time.Time) ([]*models.Document, error) {
	bodies := make([]string, len(inputs))
	cleaned := make([]string, len(inputs))
	for i, in := range inputs {
		bodies[i] = in.page.BodyText
		cleaned[i] = features.Clean(in.page.BodyText)
	}
	feats := a.engine.ExtractBatch(bodies)
	vecs, err := a.embedder.EmbedBatch(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	// per-document latency is not separable in a batch; record the mean
	perDoc := time.Since(start) / time.Duration(len(inputs))
	docs := make([]*models.Document, len(inputs))
	for i, in := range inputs {
		doc, res, err := a.assemble(in, feats[i], vecs[i])
		if err != nil {
			return nil, err
		}
		doc.RunID = runID
		if a.shouldPersist(in) {
			if err := a.persist(ctx, doc); err != nil {
				return nil, err
			}
		}
		a.metrics.ObserveAnalysis(in.source, string(doc.QualityLabel), perDoc)
		docs[i] = doc
		result.Results = append(result.Results, res)
	}
	return docs, nil
}

func (a *Analyzer) batchDuplicates(docs []*models.Document) ([]models.DuplicatePair, error) {
	vecs := make([][]float32, len(docs))
	for i, d := range docs {
		vecs[i] = d.Embedding
	}
	pairs, err := vector.FindDuplicates(vecs, a.cfg.DuplicateThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicates: %w", err)
	}
	out := make([]models.DuplicatePair, len(pairs))
	for i, p := range pairs {
		out[i] = models.DuplicatePair{
			URLA:       docs[p.I].URL,
			URLB:       docs[p.J].URL,
			Similarity: p.Similarity,
		}
	}
	return out, nil
}

func failureFor(url string, err error) models.Failure {
	f := models.Failure{URL: url, Error: err.Error()}
	if fe, ok := fetch.AsError(err); ok {
		f.StatusCode = fe.StatusCode
	}
	return f
}

func summarize(r *models.BatchResult) models.Summary {
	s := models.Summary{Analyzed: len(r.Results), Failed: len(r.Failures)}
	if s.Analyzed == 0 {
		return s
	}
	var score, words float64
	for _, res := range r.Results {
		score += res.CompositeScore
		words += float64(res.WordCount)
		if res.QualityLabel == models.QualityHigh {
			s.HighQuality++
		}
		if res.IsThin {
			s.Thin++
		}
	}
	s.AvgScore = utils.Round(score/float64(s.Analyzed), 2)
	s.AvgWords = utils.Round(words/float64(s.Analyzed), 2)
	return s
}
