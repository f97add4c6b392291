package config

import "time"

// DefaultUserAgent mimics a desktop browser; many sites reject unknown clients with 403.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/pagegrade/data/db/documents.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/pagegrade/data/indices/corpus.vec"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/pagegrade/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.VocabPath == "" {
		cfg.Embedding.VocabPath = "/usr/local/var/pagegrade/data/models/vocab.txt"
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "last_hidden_state"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.Endpoint == "" {
		cfg.Embedding.Endpoint = "https://api.openai.com/v1/embeddings"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-MiniLM-L6-v2"
	}
	if cfg.Scoring.ModelPath == "" {
		cfg.Scoring.ModelPath = "/usr/local/var/pagegrade/data/models/quality_model.json"
	}
	if cfg.Scoring.ThinThreshold == 0 {
		cfg.Scoring.ThinThreshold = 500
	}
	if cfg.Scoring.DuplicateThreshold == 0 {
		cfg.Scoring.DuplicateThreshold = 0.80
	}
	if cfg.Scoring.TopKeywords == 0 {
		cfg.Scoring.TopKeywords = 5
	}
	if cfg.Scoring.MaxKeywordFeatures == 0 {
		cfg.Scoring.MaxKeywordFeatures = 1000
	}
	if cfg.Scoring.SimilarLimit == 0 {
		cfg.Scoring.SimilarLimit = 10
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 10 * time.Second
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = DefaultUserAgent
	}
	if cfg.Fetch.MaxBodyBytes == 0 {
		cfg.Fetch.MaxBodyBytes = 10 * 1024 * 1024
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".html", ".htm", ".txt", ".md", ".pdf", ".docx", ".odt", ".rtf"}
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
