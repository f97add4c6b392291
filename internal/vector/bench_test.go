package vector

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
)

func benchVectors(n, dims int) [][]float32 {
	r := rand.New(rand.NewSource(1))
	vecs := make([][]float32, n)
	for i := range vecs {
		v := make([]float32, dims)
		for j := range v {
			v[j] = r.Float32()*2 - 1
		}
		vecs[i] = v
	}
	return vecs
}

func BenchmarkMemoryIndexSimilarTo(b *testing.B) {
	idx, _ := NewMemoryIndex(384)
	ctx := context.Background()
	vecs := benchVectors(1000, 384)
	ids := make([]string, len(vecs))
	for i := range ids {
		ids[i] = fmt.Sprintf("doc-%d", i)
	}
	_ = idx.Add(ctx, ids, vecs)
	query := vecs[0]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.SimilarTo(ctx, "doc-0", query, 0.8, 10)
	}
}

func BenchmarkFindDuplicates(b *testing.B) {
	vecs := benchVectors(200, 384)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = FindDuplicates(vecs, 0.8)
	}
}
