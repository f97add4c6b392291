package models

import (
	"fmt"
	"strings"
)

// MaxBatchSize caps the number of inputs accepted in one batch request.
const MaxBatchSize = 500

// AnalyzeRequest is the input for a single analysis. Exactly one of URL, HTML or Text drives it;
// URL may accompany HTML as the document's address.
type AnalyzeRequest struct {
	URL  string `json:"url,omitempty"`
	HTML string `json:"html,omitempty"`
	Text string `json:"text,omitempty"`
}

// Validate ensures the request names something to analyse.
func (r *AnalyzeRequest) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	if r.URL == "" && r.HTML == "" && strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("one of url, html or text is required")
	}
	if r.Text != "" && (r.HTML != "" || r.URL != "") {
		return fmt.Errorf("text cannot be combined with url or html")
	}
	return nil
}

// CompareRequest is the input for comparing two pages or two texts.
type CompareRequest struct {
	URLA  string `json:"url_a,omitempty"`
	URLB  string `json:"url_b,omitempty"`
	TextA string `json:"text_a,omitempty"`
	TextB string `json:"text_b,omitempty"`
}

// ByText reports whether the comparison uses raw text instead of URLs.
func (r *CompareRequest) ByText() bool {
	return r.TextA != "" || r.TextB != ""
}

// Validate ensures both sides are supplied in the same form.
func (r *CompareRequest) Validate() error {
	r.URLA = strings.TrimSpace(r.URLA)
	r.URLB = strings.TrimSpace(r.URLB)
	if r.ByText() {
		if strings.TrimSpace(r.TextA) == "" || strings.TrimSpace(r.TextB) == "" {
			return fmt.Errorf("both text_a and text_b are required")
		}
		return nil
	}
	if r.URLA == "" || r.URLB == "" {
		return fmt.Errorf("both url_a and url_b are required")
	}
	return nil
}

// BatchRow is one batch input: a URL plus optional pre-fetched HTML.
type BatchRow struct {
	URL         string `json:"url"`
	HTMLContent string `json:"html_content,omitempty"`
}

// BatchRequest is the input for a batch run.
type BatchRequest struct {
	URLs []string   `json:"urls,omitempty"`
	Rows []BatchRow `json:"rows,omitempty"`
}

// Validate merges URLs into Rows, drops blank entries and enforces MaxBatchSize.
func (r *BatchRequest) Validate() error {
	rows := make([]BatchRow, 0, len(r.Rows)+len(r.URLs))
	for _, row := range r.Rows {
		row.URL = strings.TrimSpace(row.URL)
		if row.URL == "" {
			continue
		}
		rows = append(rows, row)
	}
	for _, u := range r.URLs {
		if u = strings.TrimSpace(u); u != "" {
			rows = append(rows, BatchRow{URL: u})
		}
	}
	if len(rows) == 0 {
		return fmt.Errorf("batch requires at least one url")
	}
	if len(rows) > MaxBatchSize {
		return fmt.Errorf("batch too large: %d rows (max %d)", len(rows), MaxBatchSize)
	}
	r.Rows = rows
	r.URLs = nil
	return nil
}
