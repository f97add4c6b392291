// Package scoring classifies documents into quality labels and computes the composite score.
package scoring

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hyperjump/pagegrade/internal/models"
)

// FeatureNames is the input order every model must declare.
var FeatureNames = []string{"word_count", "sentence_count", "flesch_reading_ease", "avg_word_length"}

// Node is one entry of a flattened decision tree. A node with Feature < 0 is a leaf;
// otherwise samples with x[Feature] <= Threshold go Left, the rest go Right.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      int       `json:"left,omitempty"`
	Right     int       `json:"right,omitempty"`
	Value     []float64 `json:"value,omitempty"`
}

// Tree is a decision tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest is a random forest exported as JSON.
type Forest struct {
	Version  string                `json:"version"`
	Features []string              `json:"features"`
	Classes  []models.QualityLabel `json:"classes"`
	Trees    []Tree                `json:"trees"`
}

// LoadModel reads and validates a forest from path.
func LoadModel(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quality model: %w", err)
	}
	f, err := ParseModel(data)
	if err != nil {
		return nil, fmt.Errorf("invalid quality model %s: %w", path, err)
	}
	return f, nil
}

// ParseModel decodes and validates a forest.
func ParseModel(data []byte) (*Forest, error) {
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Forest) validate() error {
	if len(f.Features) != len(FeatureNames) {
		return fmt.Errorf("expected %d features, got %d", len(FeatureNames), len(f.Features))
	}
	for i, name := range FeatureNames {
		if f.Features[i] != name {
			return fmt.Errorf("feature %d: expected %q, got %q", i, name, f.Features[i])
		}
	}
	if len(f.Classes) == 0 {
		return fmt.Errorf("model has no classes")
	}
	for _, c := range f.Classes {
		if !c.Valid() {
			return fmt.Errorf("unknown class %q", c)
		}
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("model has no trees")
	}
	for t, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", t)
		}
		for i, n := range tree.Nodes {
			if n.Feature < 0 {
				if len(n.Value) != len(f.Classes) {
					return fmt.Errorf("tree %d node %d: leaf has %d values, want %d", t, i, len(n.Value), len(f.Classes))
				}
				continue
			}
			if n.Feature >= len(FeatureNames) {
				return fmt.Errorf("tree %d node %d: feature index %d out of range", t, i, n.Feature)
			}
			// children must come later so walking a tree always terminates
			if n.Left <= i || n.Right <= i || n.Left >= len(tree.Nodes) || n.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d: invalid children %d/%d", t, i, n.Left, n.Right)
			}
		}
	}
	return nil
}

// leaf walks the tree for x and returns the reached leaf's class values.
func (t *Tree) leaf(x []float64) []float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Predict returns the majority-vote label for x. Each tree votes for the class with the
// highest leaf value; ties go to the class listed first.
func (f *Forest) Predict(x []float64) (models.QualityLabel, error) {
	if len(x) != len(FeatureNames) {
		return "", fmt.Errorf("expected %d features, got %d", len(FeatureNames), len(x))
	}
	votes := make([]int, len(f.Classes))
	for i := range f.Trees {
		votes[argmax(f.Trees[i].leaf(x))]++
	}
	best := 0
	for c := 1; c < len(votes); c++ {
		if votes[c] > votes[best] {
			best = c
		}
	}
	return f.Classes[best], nil
}

// Probabilities returns the mean of the normalised leaf distributions, keyed by class.
func (f *Forest) Probabilities(x []float64) (map[models.QualityLabel]float64, error) {
	if len(x) != len(FeatureNames) {
		return nil, fmt.Errorf("expected %d features, got %d", len(FeatureNames), len(x))
	}
	sums := make([]float64, len(f.Classes))
	for i := range f.Trees {
		v := f.Trees[i].leaf(x)
		var total float64
		for _, w := range v {
			total += w
		}
		if total == 0 {
			continue
		}
		for c, w := range v {
			sums[c] += w / total
		}
	}
	out := make(map[models.QualityLabel]float64, len(f.Classes))
	for c, label := range f.Classes {
		out[label] = sums[c] / float64(len(f.Trees))
	}
	return out, nil
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
