package scoring

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/pagegrade/internal/config"
	"github.com/hyperjump/pagegrade/internal/models"
	"github.com/hyperjump/pagegrade/pkg/utils"
)

// Assessment is the scorer's verdict for one feature set.
type Assessment struct {
	Label          models.QualityLabel
	Confidence     float64 // share of the forest's probability mass on Label
	CompositeScore float64
	IsThin         bool
	Interpretation models.Interpretation
}

// ModelInfo describes the loaded classifier.
type ModelInfo struct {
	Path    string   `json:"path"`
	Version string   `json:"version"`
	Trees   int      `json:"trees"`
	Classes []string `json:"classes"`
}

// Scorer wraps the read-only forest and thresholds.
type Scorer struct {
	forest        *Forest
	path          string
	thinThreshold int
	logger        *zap.Logger
}

// NewScorer loads the model at cfg.ModelPath. A missing or invalid model is an error.
func NewScorer(cfg config.ScoringConfig, logger *zap.Logger) (*Scorer, error) {
	forest, err := LoadModel(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	s := NewScorerFromForest(forest, cfg.ThinThreshold, logger)
	s.path = cfg.ModelPath
	s.logger.Info("Quality model loaded",
		zap.String("path", cfg.ModelPath),
		zap.String("version", forest.Version),
		zap.Int("trees", len(forest.Trees)))
	return s, nil
}

// NewScorerFromForest builds a scorer around an already parsed forest.
func NewScorerFromForest(forest *Forest, thinThreshold int, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if thinThreshold <= 0 {
		thinThreshold = 500
	}
	return &Scorer{forest: forest, thinThreshold: thinThreshold, logger: logger}
}

// Assess classifies f and computes its composite score and interpretation.
func (s *Scorer) Assess(f models.Features) (Assessment, error) {
	label, err := s.forest.Predict(f.Vector())
	if err != nil {
		return Assessment{}, fmt.Errorf("failed to predict quality: %w", err)
	}
	score := CompositeScore(f)
	return Assessment{
		Label:          label,
		Confidence:     s.Confidence(f, label),
		CompositeScore: score,
		IsThin:         IsThin(f.WordCount, s.thinThreshold),
		Interpretation: Interpret(label, f, score),
	}, nil
}

// Confidence returns the forest's mean probability for label given f, rounded to 4 decimals.
// Features of the wrong shape yield 0.
func (s *Scorer) Confidence(f models.Features, label models.QualityLabel) float64 {
	p, err := s.forest.Probabilities(f.Vector())
	if err != nil {
		return 0
	}
	return utils.Round(p[label], 4)
}

// ThinThreshold returns the configured thin-content word count.
func (s *Scorer) ThinThreshold() int {
	return s.thinThreshold
}

// Info describes the loaded model.
func (s *Scorer) Info() ModelInfo {
	classes := make([]string, len(s.forest.Classes))
	for i, c := range s.forest.Classes {
		classes[i] = string(c)
	}
	return ModelInfo{
		Path:    s.path,
		Version: s.forest.Version,
		Trees:   len(s.forest.Trees),
		Classes: classes,
	}
}
