// Package storage persists analysed documents and their embeddings.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/pagegrade/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// EmbeddingRecord is a stored document's vector together with its address.
type EmbeddingRecord struct {
	ID     string
	URL    string
	Vector []float32
}

// Storage defines document persistence operations.
type Storage interface {
	// SaveDocument inserts doc or replaces the stored document with the same ID.
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	CountDocuments(ctx context.Context) (int64, error)

	// Embeddings returns every stored vector ordered by document ID.
	Embeddings(ctx context.Context) ([]EmbeddingRecord, error)

	Close() error
}
