package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/pagegrade/internal/models"
)

// Sheet names of the XLSX report.
const (
	SheetResults    = "Results"
	SheetFeatures   = "Features"
	SheetDuplicates = "Duplicates"
	SheetFailures   = "Failures"
)

// WriteXLSX writes a workbook with Results, Features, Duplicates and Failures sheets.
func WriteXLSX(w io.Writer, res *models.BatchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetResults); err != nil {
		return err
	}
	for _, name := range []string{SheetFeatures, SheetDuplicates, SheetFailures} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	results := make([][]any, len(res.Results))
	features := make([][]any, len(res.Results))
	for i, r := range res.Results {
		results[i] = []any{r.URL, string(r.QualityLabel), r.CompositeScore, r.WordCount, r.Readability, r.IsThin}
		features[i] = toRow(featureRecord(r))
	}
	duplicates := make([][]any, len(res.Duplicates))
	for i, p := range res.Duplicates {
		duplicates[i] = []any{p.URLA, p.URLB, p.Similarity}
	}
	failures := make([][]any, len(res.Failures))
	for i, fl := range res.Failures {
		failures[i] = []any{fl.URL, fl.StatusCode, fl.Error}
	}

	sheets := []struct {
		name   string
		header []string
		rows   [][]any
	}{
		{SheetResults, ResultHeader, results},
		{SheetFeatures, FeatureHeader, features},
		{SheetDuplicates, DuplicateHeader, duplicates},
		{SheetFailures, []string{"url", "status_code", "error"}, failures},
	}
	for _, s := range sheets {
		if err := writeSheet(f, s.name, toRow(s.header), s.rows); err != nil {
			return fmt.Errorf("sheet %s: %w", s.name, err)
		}
	}
	return f.Write(w)
}

// ReadBatchXLSX reads batch input from the first sheet of a workbook, with the same
// columns as ReadBatchCSV.
func ReadBatchXLSX(r io.Reader) ([]models.BatchRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("batch file is empty")
	}
	urlCol, htmlCol, err := batchColumns(records[0])
	if err != nil {
		return nil, err
	}
	var rows []models.BatchRow
	for _, rec := range records[1:] {
		if row, ok := batchRow(rec, urlCol, htmlCol); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func toRow(values []string) []any {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
