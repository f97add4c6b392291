package vector

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/hyperjump/pagegrade/pkg/utils"
)

// Verdicts for a pairwise comparison.
const (
	VerdictDuplicate = "duplicate"
	VerdictModerate  = "moderate"
	VerdictUnique    = "unique"
)

// Cosine returns the cosine similarity of a and b clamped to [0,1].
// Mismatched lengths or a zero vector yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return utils.Clamp(dot/(math.Sqrt(na)*math.Sqrt(nb)), 0, 1)
}

// Verdict classifies a similarity: above 0.80 is a duplicate, above 0.50 is moderate.
func Verdict(similarity float64) string {
	switch {
	case similarity > 0.80:
		return VerdictDuplicate
	case similarity > 0.50:
		return VerdictModerate
	default:
		return VerdictUnique
	}
}

// Pairwise returns the symmetric cosine-similarity matrix of vectors, clamped to [0,1].
// Rows are L2-normalised and multiplied once, so entry (i,j) equals entry (j,i) exactly.
// Zero vectors have similarity 0 with everything, including themselves.
func Pairwise(vectors [][]float32) (*mat.SymDense, error) {
	n := len(vectors)
	if n == 0 {
		return nil, nil
	}
	dims := len(vectors[0])
	if dims == 0 {
		return nil, fmt.Errorf("empty vectors")
	}
	data := make([]float64, n*dims)
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(v), dims)
		}
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		row := data[i*dims : (i+1)*dims]
		for j, x := range v {
			row[j] = float64(x) / norm
		}
	}

	var gram mat.SymDense
	gram.SymOuterK(1, mat.NewDense(n, dims, data))
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			gram.SetSym(i, j, utils.Clamp(gram.At(i, j), 0, 1))
		}
	}
	return &gram, nil
}

// Pair is a duplicate candidate: indexes into the input with I < J.
type Pair struct {
	I, J       int
	Similarity float64
}

// FindDuplicates returns every pair i < j with similarity >= threshold, most similar first.
// Ties keep input order.
func FindDuplicates(vectors [][]float32, threshold float64) ([]Pair, error) {
	gram, err := Pairwise(vectors)
	if err != nil || gram == nil {
		return nil, err
	}
	n := gram.SymmetricDim()
	var pairs []Pair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if s := gram.At(i, j); s >= threshold {
				pairs = append(pairs, Pair{I: i, J: j, Similarity: s})
			}
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].Similarity > pairs[b].Similarity
	})
	return pairs, nil
}
