package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/pagegrade/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		url TEXT,
		title TEXT,
		body_text TEXT NOT NULL,
		excerpt TEXT,
		word_count INTEGER NOT NULL,
		sentence_count INTEGER NOT NULL,
		flesch_reading_ease REAL NOT NULL,
		avg_word_length REAL NOT NULL,
		top_keywords TEXT,
		language TEXT,
		quality_label TEXT NOT NULL,
		composite_score REAL NOT NULL,
		is_thin INTEGER NOT NULL,
		embedding BLOB,
		run_id TEXT,
		analyzed_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_analyzed_at ON documents(analyzed_at);
	CREATE INDEX IF NOT EXISTS idx_documents_run_id ON documents(run_id);
	`
	_, err := db.Exec(schema)
	return err
}

const documentColumns = `id, url, title, body_text, excerpt, word_count, sentence_count,
	flesch_reading_ease, avg_word_length, top_keywords, language, quality_label,
	composite_score, is_thin, embedding, run_id, analyzed_at`

// SaveDocument upserts doc. AnalyzedAt is set when zero.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	keywords := doc.TopKeywords
	if keywords == nil {
		keywords = []string{}
	}
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}
	if doc.AnalyzedAt.IsZero() {
		doc.AnalyzedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (`+documentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.URL, doc.Title, doc.BodyText, doc.Excerpt,
		doc.WordCount, doc.SentenceCount, doc.FleschReadingEase, doc.AvgWordLength,
		string(keywordsJSON), doc.Language, string(doc.QualityLabel),
		doc.CompositeScore, doc.IsThin, encodeEmbedding(doc.Embedding), doc.RunID, doc.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc                            models.Document
		url, title, excerpt, lang, run sql.NullString
		keywordsJSON                   sql.NullString
		label                          string
		embedding                      []byte
	)
	err := row.Scan(&doc.ID, &url, &title, &doc.BodyText, &excerpt,
		&doc.WordCount, &doc.SentenceCount, &doc.FleschReadingEase, &doc.AvgWordLength,
		&keywordsJSON, &lang, &label, &doc.CompositeScore, &doc.IsThin, &embedding, &run, &doc.AnalyzedAt)
	if err != nil {
		return nil, err
	}
	doc.URL = url.String
	doc.Title = title.String
	doc.Excerpt = excerpt.String
	doc.Language = lang.String
	doc.RunID = run.String
	doc.QualityLabel = models.QualityLabel(label)
	doc.TopKeywords = []string{}
	if keywordsJSON.String != "" {
		if err := json.Unmarshal([]byte(keywordsJSON.String), &doc.TopKeywords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
		}
	}
	if doc.Embedding, err = decodeEmbedding(embedding); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocument returns a document by ID, or ErrNotFound.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes a document by ID, or returns ErrNotFound.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListDocuments returns documents newest first with offset and limit.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+`
		 FROM documents ORDER BY analyzed_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []*models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Embeddings returns every non-empty stored vector ordered by ID.
func (s *SQLiteStorage) Embeddings(ctx context.Context) ([]EmbeddingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, embedding FROM documents
		 WHERE embedding IS NOT NULL AND length(embedding) > 0 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmbeddingRecord
	for rows.Next() {
		var (
			rec  EmbeddingRecord
			url  sql.NullString
			blob []byte
		)
		if err := rows.Scan(&rec.ID, &url, &blob); err != nil {
			return nil, err
		}
		rec.URL = url.String
		if rec.Vector, err = decodeEmbedding(blob); err != nil {
			return nil, fmt.Errorf("document %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
