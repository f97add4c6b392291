// Package report reads batch input files and writes analysis results as CSV, XLSX or JSON.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/pagegrade/internal/models"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// ResultHeader is the column order of the results CSV.
var ResultHeader = []string{"URL", "Quality", "Score", "Word Count", "Readability", "Thin Content"}

// FeatureHeader is the column order of the features CSV.
var FeatureHeader = []string{"url", "title", "word_count", "sentence_count", "flesch_reading_ease", "avg_word_length", "top_keywords"}

// DuplicateHeader is the column order of the duplicates CSV.
var DuplicateHeader = []string{"url1", "url2", "similarity"}

// FormatFromPath picks the output format from path's extension, defaulting to CSV.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX
	case ".json":
		return FormatJSON
	default:
		return FormatCSV
	}
}

// ReadBatchCSV parses a batch input file. The header must contain a "url" column and may
// contain "html_content"; column names are matched case-insensitively. Rows with an empty
// url are skipped.
func ReadBatchCSV(r io.Reader) ([]models.BatchRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("batch file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	urlCol, htmlCol, err := batchColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []models.BatchRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if row, ok := batchRow(rec, urlCol, htmlCol); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func batchColumns(header []string) (urlCol, htmlCol int, err error) {
	urlCol, htmlCol = -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "url":
			urlCol = i
		case "html_content":
			htmlCol = i
		}
	}
	if urlCol < 0 {
		return 0, 0, fmt.Errorf("batch file has no url column")
	}
	return urlCol, htmlCol, nil
}

func batchRow(rec []string, urlCol, htmlCol int) (models.BatchRow, bool) {
	row := models.BatchRow{URL: strings.TrimSpace(field(rec, urlCol))}
	if row.URL == "" {
		return row, false
	}
	if htmlCol >= 0 {
		row.HTMLContent = field(rec, htmlCol)
	}
	return row, true
}

// ReadBatchFile reads batch input from path: an .xlsx workbook or, otherwise, CSV.
func ReadBatchFile(path string) ([]models.BatchRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()
	if FormatFromPath(path) == FormatXLSX {
		return ReadBatchXLSX(f)
	}
	return ReadBatchCSV(f)
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func resultRecord(r *models.AnalysisResult) []string {
	return []string{
		r.URL,
		string(r.QualityLabel),
		formatFloat(r.CompositeScore),
		strconv.Itoa(r.WordCount),
		formatFloat(r.Readability),
		formatBool(r.IsThin),
	}
}

func featureRecord(r *models.AnalysisResult) []string {
	return []string{
		r.URL,
		r.Title,
		strconv.Itoa(r.WordCount),
		strconv.Itoa(r.SentenceCount),
		formatFloat(r.Readability),
		formatFloat(r.AvgWordLength),
		strings.Join(r.TopKeywords, "|"),
	}
}

func duplicateRecord(p models.DuplicatePair) []string {
	return []string{p.URLA, p.URLB, strconv.FormatFloat(p.Similarity, 'f', 4, 64)}
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

// WriteResultsCSV writes one row per result: URL, Quality, Score, Word Count, Readability, Thin Content.
func WriteResultsCSV(w io.Writer, results []*models.AnalysisResult) error {
	records := make([][]string, len(results))
	for i, r := range results {
		records[i] = resultRecord(r)
	}
	return writeCSV(w, ResultHeader, records)
}

// WriteFeaturesCSV writes the per-document feature table with pipe-joined keywords.
func WriteFeaturesCSV(w io.Writer, results []*models.AnalysisResult) error {
	records := make([][]string, len(results))
	for i, r := range results {
		records[i] = featureRecord(r)
	}
	return writeCSV(w, FeatureHeader, records)
}

// WriteDuplicatesCSV writes duplicate pairs as url1, url2, similarity.
func WriteDuplicatesCSV(w io.Writer, pairs []models.DuplicatePair) error {
	records := make([][]string, len(pairs))
	for i, p := range pairs {
		records[i] = duplicateRecord(p)
	}
	return writeCSV(w, DuplicateHeader, records)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Write renders a batch result in the given format. CSV carries only the results table.
func Write(w io.Writer, format string, res *models.BatchResult) error {
	switch format {
	case FormatCSV:
		return WriteResultsCSV(w, res.Results)
	case FormatXLSX:
		return WriteXLSX(w, res)
	case FormatJSON:
		return WriteJSON(w, res)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteFile renders res to path in the format implied by its extension.
func WriteFile(path string, res *models.BatchResult) error {
	format := FormatFromPath(path)
	return writeFile(path, func(w io.Writer) error { return Write(w, format, res) })
}

// WriteFeaturesFile writes the features CSV for results to path.
func WriteFeaturesFile(path string, results []*models.AnalysisResult) error {
	return writeFile(path, func(w io.Writer) error { return WriteFeaturesCSV(w, results) })
}

// WriteDuplicatesFile writes the duplicates CSV for pairs to path.
func WriteDuplicatesFile(path string, pairs []models.DuplicatePair) error {
	return writeFile(path, func(w io.Writer) error { return WriteDuplicatesCSV(w, pairs) })
}

func writeFile(path string, render func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}
