// Package config provides configuration loading and structs for the pagegrade server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. PAGEGRADE_SERVER_PORT.
const EnvPrefix = "pagegrade"

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug" envconfig:"debug"`
	Server    ServerConfig    `yaml:"server" envconfig:"server"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding" envconfig:"embedding"`
	Scoring   ScoringConfig   `yaml:"scoring" envconfig:"scoring"`
	Fetch     FetchConfig     `yaml:"fetch" envconfig:"fetch"`
	Watch     WatchConfig     `yaml:"watch" envconfig:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" envconfig:"host"`
	Port int    `yaml:"port" envconfig:"port"`
}

// StorageConfig holds paths for the document database and the corpus vector index.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path" envconfig:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path" envconfig:"vector_index_path"`
}

// EmbeddingConfig selects and configures the sentence-embedding provider.
// Provider is one of "onnx", "http" or "hash".
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" envconfig:"provider"`
	ModelPath  string `yaml:"model_path" envconfig:"model_path"`
	VocabPath  string `yaml:"vocab_path" envconfig:"vocab_path"`
	OutputName string `yaml:"output_name" envconfig:"output_name"`
	Dimensions int    `yaml:"dimensions" envconfig:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens" envconfig:"max_tokens"`
	CacheSize  int    `yaml:"cache_size" envconfig:"cache_size"`
	// LibraryPath points at the onnxruntime shared library; empty uses the platform default.
	LibraryPath string `yaml:"library_path" envconfig:"library_path"`

	Endpoint string `yaml:"endpoint" envconfig:"endpoint"`
	APIKey   string `yaml:"api_key" envconfig:"api_key"`
	Model    string `yaml:"model" envconfig:"model"`
}

// ScoringConfig holds classifier and threshold settings.
type ScoringConfig struct {
	ModelPath           string  `yaml:"model_path" envconfig:"model_path"`
	ThinThreshold       int     `yaml:"thin_threshold" envconfig:"thin_threshold"`
	DuplicateThreshold  float64 `yaml:"duplicate_threshold" envconfig:"duplicate_threshold"`
	TopKeywords         int     `yaml:"top_keywords" envconfig:"top_keywords"`
	MaxKeywordFeatures  int     `yaml:"max_keyword_features" envconfig:"max_keyword_features"`
	SimilarLimit        int     `yaml:"similar_limit" envconfig:"similar_limit"`
	DetectLanguage      *bool   `yaml:"detect_language" envconfig:"detect_language"`
	PersistTextAnalyses bool    `yaml:"persist_text_analyses" envconfig:"persist_text_analyses"`
}

// DetectLanguageOrDefault returns whether language detection is enabled; defaults to true when unset.
func (s *ScoringConfig) DetectLanguageOrDefault() bool {
	if s.DetectLanguage != nil {
		return *s.DetectLanguage
	}
	return true
}

// FetchConfig holds settings for downloading pages.
type FetchConfig struct {
	Timeout        time.Duration `yaml:"timeout" envconfig:"timeout"`
	UserAgent      string        `yaml:"user_agent" envconfig:"user_agent"`
	RequestsPerSec float64       `yaml:"requests_per_second" envconfig:"requests_per_second"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" envconfig:"max_body_bytes"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories" envconfig:"directories"`
	Extensions  []string `yaml:"extensions" envconfig:"extensions"`
	Recursive   *bool    `yaml:"recursive" envconfig:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies environment overrides,
// applies defaults and expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.VocabPath = expandPath(cfg.Embedding.VocabPath, configDir)
	cfg.Scoring.ModelPath = expandPath(cfg.Scoring.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
