// Package embedding produces sentence embeddings for page text.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/pagegrade/internal/config"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Provider names accepted in configuration.
const (
	ProviderONNX = "onnx"
	ProviderHTTP = "http"
	ProviderHash = "hash"
)

// New builds the embedder selected by cfg.Provider, wrapped in an LRU cache when
// cfg.CacheSize > 0. A missing ONNX model or vocabulary is an error.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case ProviderONNX, "":
		e, err = NewONNXEmbedder(cfg)
	case ProviderHTTP:
		e, err = NewHTTPEmbedder(cfg)
	case ProviderHash:
		e = NewHashEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("Embedding provider ready",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", e.Dimensions()))
	if cfg.CacheSize > 0 {
		e = NewCached(e, cfg.CacheSize)
	}
	return e, nil
}

// embedEach calls embed for every text in order.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
