package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/pagegrade/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleDocument(id string) *models.Document {
	return &models.Document{
		ID:       id,
		URL:      "https://example.com/" + id,
		Title:    "Title " + id,
		BodyText: "some body text",
		Features: models.Features{
			WordCount:         3,
			SentenceCount:     1,
			FleschReadingEase: 88.5,
			AvgWordLength:     4.33,
			TopKeywords:       []string{"body", "text"},
			Language:          "en",
		},
		QualityLabel:   models.QualityLow,
		CompositeScore: 42.1,
		IsThin:         true,
		Embedding:      []float32{0.5, -0.25, 1},
		RunID:          "run-1",
	}
}

func TestSQLiteStorage_SaveGet(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	doc := sampleDocument("doc1")
	if err := store.SaveDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if doc.AnalyzedAt.IsZero() {
		t.Error("AnalyzedAt should be set")
	}

	got, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if got.URL != doc.URL || got.Title != doc.Title || got.BodyText != doc.BodyText {
		t.Errorf("text fields: got %+v", got)
	}
	if got.WordCount != 3 || got.SentenceCount != 1 || got.FleschReadingEase != 88.5 || got.AvgWordLength != 4.33 {
		t.Errorf("features: got %+v", got.Features)
	}
	if len(got.TopKeywords) != 2 || got.TopKeywords[0] != "body" {
		t.Errorf("keywords: got %v", got.TopKeywords)
	}
	if got.QualityLabel != models.QualityLow || !got.IsThin || got.Language != "en" || got.RunID != "run-1" {
		t.Errorf("labels: got %+v", got)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != -0.25 {
		t.Errorf("embedding: got %v", got.Embedding)
	}
}

func TestSQLiteStorage_SaveReplaces(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	doc := sampleDocument("doc1")
	_ = store.SaveDocument(ctx, doc)
	doc.Title = "Updated"
	doc.QualityLabel = models.QualityHigh
	doc.AnalyzedAt = time.Time{}
	if err := store.SaveDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	n, _ := store.CountDocuments(ctx)
	if n != 1 {
		t.Errorf("expected 1 document after upsert, got %d", n)
	}
	got, _ := store.GetDocument(ctx, "doc1")
	if got.Title != "Updated" || got.QualityLabel != models.QualityHigh {
		t.Errorf("got %+v", got)
	}
}

func TestSQLiteStorage_NotFound(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	if _, err := store.GetDocument(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument: expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteDocument(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteDocument: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_ListDeleteCount(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		doc := sampleDocument(id)
		doc.AnalyzedAt = base.Add(time.Duration(i) * time.Hour)
		if err := store.SaveDocument(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.ListDocuments(ctx, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
		t.Errorf("expected newest first [c b], got %d docs", len(list))
	}
	list, _ = store.ListDocuments(ctx, 2, 10)
	if len(list) != 1 || list[0].ID != "a" {
		t.Errorf("offset page: got %d docs", len(list))
	}

	if err := store.DeleteDocument(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	n, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 documents, got %d", n)
	}
}

func TestSQLiteStorage_ListEmpty(t *testing.T) {
	store := newTestStorage(t)
	list, err := store.ListDocuments(context.Background(), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty non-nil list, got %v", list)
	}
}

func TestSQLiteStorage_Embeddings(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_ = store.SaveDocument(ctx, sampleDocument("b"))
	_ = store.SaveDocument(ctx, sampleDocument("a"))
	noVec := sampleDocument("c")
	noVec.Embedding = nil
	_ = store.SaveDocument(ctx, noVec)

	recs, err := store.Embeddings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != "a" || recs[1].ID != "b" {
		t.Errorf("expected ordering by id, got %s, %s", recs[0].ID, recs[1].ID)
	}
	if recs[0].URL != "https://example.com/a" || len(recs[0].Vector) != 3 {
		t.Errorf("record: %+v", recs[0])
	}
}

func TestEmbeddingCodec(t *testing.T) {
	in := []float32{1.5, -2, 0, 3.25}
	out, err := decodeEmbedding(encodeEmbedding(in))
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("index %d: got %v, want %v", i, out[i], in[i])
		}
	}
	if encodeEmbedding(nil) != nil {
		t.Error("nil embedding should encode to nil")
	}
	if _, err := decodeEmbedding([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}
