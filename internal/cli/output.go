// Package cli provides output formatting and a remote API client for the pagegrade CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/pagegrade/internal/models"
	"github.com/hyperjump/pagegrade/internal/server"
	"github.com/hyperjump/pagegrade/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is indented JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or empty (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

const rule = "─────────────────────────────────────────────────────────"

// WriteResult writes one analysis.
func WriteResult(w io.Writer, res *models.AnalysisResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	writeResultText(w, res)
	return nil
}

func writeResultText(w io.Writer, res *models.AnalysisResult) {
	fmt.Fprintln(w, rule)
	if res.URL != "" {
		fmt.Fprintf(w, "URL:          %s\n", res.URL)
	}
	if res.Title != "" {
		fmt.Fprintf(w, "Title:        %s\n", res.Title)
	}
	fmt.Fprintf(w, "Quality:      %s (score %.1f/100, %s)\n", res.QualityLabel, res.CompositeScore, res.Interpretation.Band)
	if res.Confidence > 0 {
		fmt.Fprintf(w, "Confidence:   %.0f%%\n", res.Confidence*100)
	}
	fmt.Fprintf(w, "Words:        %d in %d sentences (avg length %.2f)\n", res.WordCount, res.SentenceCount, res.AvgWordLength)
	fmt.Fprintf(w, "Readability:  %.1f\n", res.Readability)
	if res.IsThin {
		fmt.Fprintln(w, "Thin content: yes")
	}
	if len(res.TopKeywords) > 0 {
		fmt.Fprintf(w, "Keywords:     %s\n", strings.Join(res.TopKeywords, ", "))
	}
	if res.Language != "" {
		fmt.Fprintf(w, "Language:     %s\n", res.Language)
	}
	if res.Interpretation.Message != "" {
		fmt.Fprintf(w, "\n%s\n", res.Interpretation.Message)
	}
	for _, rec := range res.Interpretation.Recommendations {
		fmt.Fprintf(w, "  - %s\n", rec)
	}
	if len(res.SimilarTo) > 0 {
		fmt.Fprintln(w, "\nSimilar documents:")
		for _, s := range res.SimilarTo {
			fmt.Fprintf(w, "  %.1f%%  %s\n", s.Similarity*100, utils.Truncate(labelOf(s.URL, s.ID), 80))
		}
	}
	fmt.Fprintln(w)
}

// WriteComparison writes a two-document comparison.
func WriteComparison(w io.Writer, cmp *models.Comparison, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, cmp)
	}
	fmt.Fprintf(w, "Similarity: %.1f%% (%s)\n\n", cmp.Similarity*100, cmp.Verdict)
	writeResultText(w, cmp.A)
	writeResultText(w, cmp.B)
	return nil
}

// WriteBatchSummary writes the summary, duplicates and failures of a batch run.
// Per-document rows go to report files; JSON output includes everything.
func WriteBatchSummary(w io.Writer, res *models.BatchResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	s := res.Summary
	fmt.Fprintf(w, "Run %s\n", res.RunID)
	fmt.Fprintf(w, "analyzed:      %d\n", s.Analyzed)
	fmt.Fprintf(w, "failed:        %d\n", s.Failed)
	fmt.Fprintf(w, "avg_score:     %.2f\n", s.AvgScore)
	fmt.Fprintf(w, "high_quality:  %d\n", s.HighQuality)
	fmt.Fprintf(w, "thin:          %d\n", s.Thin)
	fmt.Fprintf(w, "avg_words:     %.2f\n", s.AvgWords)
	if len(res.Duplicates) > 0 {
		fmt.Fprintf(w, "\nDuplicate pairs (%d):\n", len(res.Duplicates))
		for _, d := range res.Duplicates {
			fmt.Fprintf(w, "  %.4f  %s  <>  %s\n", d.Similarity, d.URLA, d.URLB)
		}
	}
	if len(res.Failures) > 0 {
		fmt.Fprintf(w, "\nFailures (%d):\n", len(res.Failures))
		for _, f := range res.Failures {
			fmt.Fprintf(w, "  %s: %s\n", f.URL, f.Error)
		}
	}
	return nil
}

// WriteStatus writes corpus and model status.
func WriteStatus(w io.Writer, st *server.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "documents:            %d   # analysed documents in storage\n", st.Documents)
	fmt.Fprintf(w, "index_size:           %d   # vectors in the corpus index\n", st.IndexSize)
	fmt.Fprintf(w, "database_bytes:       %d\n", st.Disk.DatabaseBytes)
	fmt.Fprintf(w, "index_bytes:          %d\n", st.Disk.IndexBytes)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	fmt.Fprintf(w, "embedding_dims:       %d\n", st.EmbeddingDimensions)
	fmt.Fprintf(w, "duplicate_threshold:  %.2f\n", st.DuplicateThreshold)
	fmt.Fprintf(w, "thin_threshold:       %d\n", st.ThinThreshold)
	fmt.Fprintf(w, "model_version:        %s\n", st.Model.Version)
	fmt.Fprintf(w, "model_trees:          %d\n", st.Model.Trees)
	if st.Model.Path != "" {
		fmt.Fprintf(w, "model_path:           %s\n", st.Model.Path)
	}
	return nil
}

func labelOf(url, id string) string {
	if url != "" {
		return url
	}
	return id
}
