// Package extract turns HTML pages and local document files into plain text for analysis.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/pagegrade/pkg/utils"
)

// Extractor extracts plain text from document files.
type Extractor struct {
	maxBytes int64
}

// NewExtractor returns a new Extractor. Files larger than maxBytes are rejected; 0 means no limit.
func NewExtractor(maxBytes int64) *Extractor {
	return &Extractor{maxBytes: maxBytes}
}

// IsHTML reports whether ext names an HTML file.
func IsHTML(ext string) bool {
	ext = strings.ToLower(ext)
	return ext == ".html" || ext == ".htm"
}

// Extract reads the file at path and returns its page content.
// HTML files go through ParseHTML and Enrich; other formats use the file name
// (without extension) as the title.
func (e *Extractor) Extract(path string) (Page, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Page{}, fmt.Errorf("stat file: %w", err)
	}
	if e.maxBytes > 0 && info.Size() > e.maxBytes {
		return Page{}, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), e.maxBytes)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Page{}, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if IsHTML(ext) {
		raw := DecodeHTML(content, "")
		page := ParseHTML(raw)
		Enrich(&page, raw, "")
		return page, nil
	}
	text, err := e.ExtractBytes(content, ext)
	if err != nil {
		return Page{}, err
	}
	body := utils.CollapseWhitespace(text)
	return Page{
		Title:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		BodyText:  body,
		WordCount: CountWords(body),
	}, nil
}

// ExtractBytes extracts raw text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractOpenDocument(content)
	case ".xlsx":
		return extractExcel(content)
	case ".html", ".htm":
		return ParseHTMLBytes(content, "").BodyText, nil
	default:
		return extractPlain(content)
	}
}
