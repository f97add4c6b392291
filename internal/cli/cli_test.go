package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/pagegrade/internal/models"
	"github.com/hyperjump/pagegrade/internal/pipeline"
	"github.com/hyperjump/pagegrade/internal/server"
)

func sampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:             "doc-1",
		URL:            "https://example.com/coffee",
		Title:          "Coffee guide",
		WordCount:      420,
		SentenceCount:  21,
		AvgWordLength:  4.61,
		Readability:    62.3,
		QualityLabel:   models.QualityMedium,
		Confidence:     0.6667,
		CompositeScore: 58.4,
		IsThin:         true,
		TopKeywords:    []string{"coffee", "beans"},
		SimilarTo:      []models.SimilarDocument{{ID: "doc-2", URL: "https://example.com/tea", Similarity: 0.91}},
		Interpretation: models.Interpretation{
			Label:           models.QualityMedium,
			Band:            "fair",
			Message:         "Medium quality content",
			Recommendations: []string{"Expand content"},
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteResult_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResult(&buf, sampleResult(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"URL:          https://example.com/coffee",
		"Quality:      Medium (score 58.4/100, fair)",
		"Confidence:   67%",
		"Words:        420 in 21 sentences",
		"Thin content: yes",
		"Keywords:     coffee, beans",
		"  - Expand content",
		"91.0%  https://example.com/tea",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResult(&buf, sampleResult(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.AnalysisResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if decoded.QualityLabel != models.QualityMedium || decoded.WordCount != 420 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteComparison_text(t *testing.T) {
	a, b := sampleResult(), sampleResult()
	b.URL = "https://example.com/coffee-copy"
	var buf bytes.Buffer
	if err := WriteComparison(&buf, &models.Comparison{A: a, B: b, Similarity: 0.934, Verdict: "duplicate"}, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Similarity: 93.4% (duplicate)") {
		t.Errorf("unexpected header:\n%s", out)
	}
	if !strings.Contains(out, "coffee-copy") {
		t.Error("second document missing")
	}
}

func TestWriteBatchSummary_text(t *testing.T) {
	res := &models.BatchResult{
		RunID:      "run-1",
		Duplicates: []models.DuplicatePair{{URLA: "https://a", URLB: "https://b", Similarity: 0.95}},
		Failures:   []models.Failure{{URL: "https://c", StatusCode: 403, Error: "fetch https://c: 403 Forbidden"}},
		Summary:    models.Summary{Analyzed: 2, Failed: 1, AvgScore: 61.25, AvgWords: 810.5},
	}
	var buf bytes.Buffer
	if err := WriteBatchSummary(&buf, res, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Run run-1",
		"analyzed:      2",
		"avg_score:     61.25",
		"Duplicate pairs (1):",
		"0.9500  https://a  <>  https://b",
		"Failures (1):",
		"https://c: fetch https://c: 403 Forbidden",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteStatus_text(t *testing.T) {
	st := &server.StatusResponse{Status: &pipeline.Status{Documents: 3, IndexSize: 3, EmbeddingDimensions: 384, DuplicateThreshold: 0.8, ThinThreshold: 500}}
	st.Model.Version = "rf-test"
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"documents:            3", "duplicate_threshold:  0.80", "model_version:        rf-test"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"documents":7,"index_size":7,"model":{"version":"rf-x","trees":3},"disk":{"database_bytes":4096}}`))
	})
	mux.HandleFunc("/api/v1/analyze", func(w http.ResponseWriter, r *http.Request) {
		var req models.AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if strings.HasSuffix(req.URL, "/blocked") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"fetch https://x/blocked: 403 Forbidden","status_code":403}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.AnalysisResult{URL: req.URL, QualityLabel: models.QualityHigh})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL+"/", 5*time.Second)
	ctx := context.Background()

	st, err := c.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Documents != 7 || st.Model.Trees != 3 || st.Disk.DatabaseBytes != 4096 {
		t.Errorf("status = %+v %+v", st.Status, st.Disk)
	}

	res, err := c.Analyze(ctx, models.AnalyzeRequest{URL: "https://x/page"})
	if err != nil {
		t.Fatal(err)
	}
	if res.QualityLabel != models.QualityHigh || res.URL != "https://x/page" {
		t.Errorf("result = %+v", res)
	}

	_, err = c.Analyze(ctx, models.AnalyzeRequest{URL: "https://x/blocked"})
	if err == nil || !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "403 Forbidden") {
		t.Errorf("err = %v", err)
	}
}
