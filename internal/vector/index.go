// Package vector holds embedding similarity math and the in-memory corpus index.
package vector

import "context"

// Index stores document embeddings by ID and answers similarity queries.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	SimilarTo(ctx context.Context, id string, query []float32, threshold float64, k int) ([]*Result, error)
	Remove(ctx context.Context, ids []string) error
	// Reset replaces the whole contents, e.g. when rebuilding from storage.
	Reset(ids []string, vectors [][]float32) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Result is a single similarity hit.
type Result struct {
	ID    string
	Score float64 // cosine similarity clamped to [0,1]
}
