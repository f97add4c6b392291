package models

import (
	"strings"
	"testing"
)

func TestAnalyzeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     AnalyzeRequest
		wantErr bool
	}{
		{"empty", AnalyzeRequest{}, true},
		{"blank text", AnalyzeRequest{Text: "   "}, true},
		{"url only", AnalyzeRequest{URL: " https://example.com "}, false},
		{"html only", AnalyzeRequest{HTML: "<p>hi</p>"}, false},
		{"url with html", AnalyzeRequest{URL: "https://example.com", HTML: "<p>hi</p>"}, false},
		{"text only", AnalyzeRequest{Text: "some words"}, false},
		{"text with url", AnalyzeRequest{Text: "some words", URL: "https://example.com"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnalyzeRequest_ValidateTrimsURL(t *testing.T) {
	r := AnalyzeRequest{URL: "  https://example.com/a  "}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if r.URL != "https://example.com/a" {
		t.Errorf("URL = %q", r.URL)
	}
}

func TestCompareRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CompareRequest
		wantErr bool
	}{
		{"empty", CompareRequest{}, true},
		{"one url", CompareRequest{URLA: "https://a.example"}, true},
		{"two urls", CompareRequest{URLA: "https://a.example", URLB: "https://b.example"}, false},
		{"one text", CompareRequest{TextA: "alpha"}, true},
		{"two texts", CompareRequest{TextA: "alpha", TextB: "beta"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBatchRequest_Validate(t *testing.T) {
	r := BatchRequest{
		URLs: []string{"https://a.example", "  ", "https://b.example"},
		Rows: []BatchRow{{URL: "https://c.example", HTMLContent: "<p>x</p>"}, {URL: ""}},
	}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if len(r.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(r.Rows))
	}
	if r.Rows[0].URL != "https://c.example" || r.Rows[0].HTMLContent == "" {
		t.Errorf("explicit rows should come first: %+v", r.Rows[0])
	}
	if r.URLs != nil {
		t.Error("URLs should be folded into Rows")
	}
}

func TestBatchRequest_ValidateLimits(t *testing.T) {
	empty := BatchRequest{URLs: []string{" "}}
	if err := empty.Validate(); err == nil {
		t.Error("expected error for empty batch")
	}
	urls := make([]string, MaxBatchSize+1)
	for i := range urls {
		urls[i] = "https://example.com/" + strings.Repeat("a", i%5+1)
	}
	big := BatchRequest{URLs: urls}
	if err := big.Validate(); err == nil {
		t.Error("expected error for oversized batch")
	}
}

func TestQualityLabel_Valid(t *testing.T) {
	for _, l := range QualityLabels {
		if !l.Valid() {
			t.Errorf("%s should be valid", l)
		}
	}
	if QualityLabel("Excellent").Valid() {
		t.Error("unknown label should be invalid")
	}
}

func TestFeatures_Vector(t *testing.T) {
	f := Features{WordCount: 600, SentenceCount: 30, FleschReadingEase: 55.5, AvgWordLength: 4.8}
	v := f.Vector()
	want := []float64{600, 30, 55.5, 4.8}
	for i := range want {
		if v[i] != want[i] {
			t.Errorf("Vector()[%d] = %v, want %v", i, v[i], want[i])
		}
	}
}

func TestNewAnalysisResult_nonNilSlices(t *testing.T) {
	r := NewAnalysisResult(&Document{ID: "x"})
	if r.TopKeywords == nil || r.SimilarTo == nil {
		t.Error("slices should be non-nil so they encode as []")
	}
}
