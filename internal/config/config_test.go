package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
scoring:
  thin_threshold: 300
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Scoring.ThinThreshold != 300 {
		t.Errorf("thin_threshold = %d, want 300", cfg.Scoring.ThinThreshold)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv("PAGEGRADE_SERVER_PORT", "9123")
	t.Setenv("PAGEGRADE_EMBEDDING_PROVIDER", "hash")
	t.Setenv("PAGEGRADE_FETCH_TIMEOUT", "3s")
	path := writeConfig(t, `
server:
  port: 8000
embedding:
  provider: onnx
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9123 {
		t.Errorf("port = %d, want 9123 from env", cfg.Server.Port)
	}
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("provider = %s, want hash from env", cfg.Embedding.Provider)
	}
	if cfg.Fetch.Timeout != 3*time.Second {
		t.Errorf("fetch timeout = %s, want 3s", cfg.Fetch.Timeout)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/documents.db"
scoring:
  model_path: "./models/quality_model.json"
watch:
  directories: ["./inbox"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "documents.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	wantModel := filepath.Join(dir, "models", "quality_model.json")
	if cfg.Scoring.ModelPath != wantModel {
		t.Errorf("scoring model_path = %s, want %s", cfg.Scoring.ModelPath, wantModel)
	}
	if len(cfg.Watch.Directories) != 1 {
		t.Fatalf("watch directories: got %d", len(cfg.Watch.Directories))
	}
	if want := filepath.Join(dir, "inbox"); cfg.Watch.Directories[0] != want {
		t.Errorf("watch directory = %s, want %s", cfg.Watch.Directories[0], want)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"host", cfg.Server.Host, "localhost"},
		{"port", cfg.Server.Port, 8080},
		{"provider", cfg.Embedding.Provider, "onnx"},
		{"dimensions", cfg.Embedding.Dimensions, 384},
		{"max_tokens", cfg.Embedding.MaxTokens, 256},
		{"thin_threshold", cfg.Scoring.ThinThreshold, 500},
		{"duplicate_threshold", cfg.Scoring.DuplicateThreshold, 0.80},
		{"top_keywords", cfg.Scoring.TopKeywords, 5},
		{"max_keyword_features", cfg.Scoring.MaxKeywordFeatures, 1000},
		{"fetch_timeout", cfg.Fetch.Timeout, 10 * time.Second},
		{"user_agent", cfg.Fetch.UserAgent, DefaultUserAgent},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("default %s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if len(cfg.Watch.Extensions) == 0 || cfg.Watch.Extensions[0] != ".html" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
	if cfg.Watch.Recursive != nil {
		t.Error("recursive should stay unset when no directories are configured")
	}
}

func TestApplyDefaults_keepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Port: 1234},
		Scoring: ScoringConfig{DuplicateThreshold: 0.9},
	}
	ApplyDefaults(cfg)
	if cfg.Server.Port != 1234 {
		t.Errorf("port overwritten: %d", cfg.Server.Port)
	}
	if cfg.Scoring.DuplicateThreshold != 0.9 {
		t.Errorf("duplicate threshold overwritten: %f", cfg.Scoring.DuplicateThreshold)
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	f := false
	tr := true
	tests := []struct {
		name string
		in   *bool
		want bool
	}{
		{"nil_returns_true", nil, true},
		{"true_returns_true", &tr, true},
		{"false_returns_false", &f, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &WatchConfig{Recursive: tt.in}
			if got := w.RecursiveOrDefault(); got != tt.want {
				t.Errorf("RecursiveOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoringConfig_DetectLanguageOrDefault(t *testing.T) {
	s := &ScoringConfig{}
	if !s.DetectLanguageOrDefault() {
		t.Error("language detection should default to on")
	}
	off := false
	s.DetectLanguage = &off
	if s.DetectLanguageOrDefault() {
		t.Error("explicit false should disable language detection")
	}
}

func TestSave_roundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")
	cfg := &Config{Server: ServerConfig{Host: "0.0.0.0", Port: 7000}}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Host != "0.0.0.0" || loaded.Server.Port != 7000 {
		t.Errorf("round trip server: %+v", loaded.Server)
	}
}
