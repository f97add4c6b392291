package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/pagegrade/internal/models"
)

func sampleBatch() *models.BatchResult {
	return &models.BatchResult{
		RunID: "run-1",
		Results: []*models.AnalysisResult{
			{
				URL: "https://a.example", Title: "A, the first", QualityLabel: models.QualityHigh,
				CompositeScore: 81.234, WordCount: 1800, SentenceCount: 90, Readability: 61.5,
				AvgWordLength: 4.567, TopKeywords: []string{"coffee", "beans"},
			},
			{
				URL: "https://b.example", Title: "B", QualityLabel: models.QualityLow,
				CompositeScore: 20, WordCount: 120, SentenceCount: 6, Readability: 25,
				AvgWordLength: 5, IsThin: true, TopKeywords: []string{},
			},
		},
		Failures:   []models.Failure{{URL: "https://c.example", StatusCode: 403, Error: "fetch https://c.example: 403 Forbidden"}},
		Duplicates: []models.DuplicatePair{{URLA: "https://a.example", URLB: "https://b.example", Similarity: 0.91234}},
		Summary:    models.Summary{Analyzed: 2, Failed: 1},
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"out.csv", FormatCSV},
		{"out.XLSX", FormatXLSX},
		{"dir/out.json", FormatJSON},
		{"out", FormatCSV},
	}
	for _, tt := range tests {
		if got := FormatFromPath(tt.path); got != tt.want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestReadBatchCSV(t *testing.T) {
	in := "\ufeffURL,html_content\n" +
		"https://a.example,\n" +
		"  ,<p>skipped</p>\n" +
		"https://b.example,\"<html><body><p>Hi, there</p></body></html>\"\n" +
		"https://c.example\n"
	rows, err := ReadBatchCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.BatchRow{URL: "https://a.example"}, rows[0])
	assert.Equal(t, "<html><body><p>Hi, there</p></body></html>", rows[1].HTMLContent)
	assert.Equal(t, "https://c.example", rows[2].URL)
	assert.Empty(t, rows[2].HTMLContent)
}

func TestReadBatchCSV_urlOnly(t *testing.T) {
	rows, err := ReadBatchCSV(strings.NewReader("title,url\nA,https://a.example\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://a.example", rows[0].URL)
}

func TestReadBatchCSV_errors(t *testing.T) {
	_, err := ReadBatchCSV(strings.NewReader(""))
	assert.Error(t, err)
	_, err = ReadBatchCSV(strings.NewReader("link,html_content\nx,y\n"))
	assert.Error(t, err)
}

func TestReadBatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.csv")
	require.NoError(t, os.WriteFile(path, []byte("url\nhttps://a.example\n"), 0600))
	rows, err := ReadBatchFile(path)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = ReadBatchFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestReadBatchXLSX(t *testing.T) {
	f := excelize.NewFile()
	header := []any{"html_content", "URL"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	row := []any{"<p>inline</p>", "https://a.example"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &row))
	blank := []any{"<p>no url</p>", ""}
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &blank))
	urlOnly := []any{nil, "https://b.example"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &urlOnly))

	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := ReadBatchFile(path)
	require.NoError(t, err)
	assert.Equal(t, []models.BatchRow{
		{URL: "https://a.example", HTMLContent: "<p>inline</p>"},
		{URL: "https://b.example"},
	}, rows)
}

func TestReadBatchXLSX_fromReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleBatch()))
	rows, err := ReadBatchXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "https://a.example", rows[0].URL)
	assert.Empty(t, rows[0].HTMLContent)
}

func TestWriteResultsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResultsCSV(&buf, sampleBatch().Results))
	want := "URL,Quality,Score,Word Count,Readability,Thin Content\n" +
		"https://a.example,High,81.23,1800,61.50,False\n" +
		"https://b.example,Low,20.00,120,25.00,True\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteFeaturesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFeaturesCSV(&buf, sampleBatch().Results))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "url,title,word_count,sentence_count,flesch_reading_ease,avg_word_length,top_keywords", lines[0])
	assert.Equal(t, `https://a.example,"A, the first",1800,90,61.50,4.57,coffee|beans`, lines[1])
	assert.Equal(t, "https://b.example,B,120,6,25.00,5.00,", lines[2])
}

func TestWriteDuplicatesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDuplicatesCSV(&buf, sampleBatch().Duplicates))
	assert.Equal(t, "url1,url2,similarity\nhttps://a.example,https://b.example,0.9123\n", buf.String())
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleBatch()))
	var decoded models.BatchResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Len(t, decoded.Results, 2)
	assert.Contains(t, buf.String(), `"url1": "https://a.example"`)
}

func TestWrite_unknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, "pdf", sampleBatch()))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleBatch()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetResults, SheetFeatures, SheetDuplicates, SheetFailures}, f.GetSheetList())

	rows, err := f.GetRows(SheetResults)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ResultHeader, rows[0])
	assert.Equal(t, "https://a.example", rows[1][0])
	assert.Equal(t, "High", rows[1][1])

	rows, err = f.GetRows(SheetFailures)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "403", rows[1][1])

	rows, err = f.GetRows(SheetDuplicates)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"out/results.csv", "results.json", "results.xlsx"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, sampleBatch()), name)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}

func TestWriteFeaturesAndDuplicatesFiles(t *testing.T) {
	dir := t.TempDir()
	res := sampleBatch()

	featuresPath := filepath.Join(dir, "out", "features.csv")
	require.NoError(t, WriteFeaturesFile(featuresPath, res.Results))
	data, err := os.ReadFile(featuresPath)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, FeatureHeader, rows[0])
	assert.Len(t, rows, len(res.Results)+1)

	dupPath := filepath.Join(dir, "duplicates.csv")
	require.NoError(t, WriteDuplicatesFile(dupPath, res.Duplicates))
	data, err = os.ReadFile(dupPath)
	require.NoError(t, err)
	rows, err = csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, DuplicateHeader, rows[0])
	assert.Len(t, rows, len(res.Duplicates)+1)
}
