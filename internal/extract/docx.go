package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

const (
	docxDefaultBody  = "word/document.xml"
	contentTypesPath = "[Content_Types].xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// <w:t>text</w:t>, with or without attributes such as xml:space="preserve".
	wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	// Paragraph ends become spaces so words in adjacent paragraphs do not merge.
	wpEnd = regexp.MustCompile(`</w:p>`)
	// Override entry for the main document part; attribute order varies between producers.
	overrideTag = regexp.MustCompile(`<Override[^>]*/?>`)
	partNameRe  = regexp.MustCompile(`PartName="([^"]+)"`)
)

// extractDOCX extracts text from .docx bytes by collecting the <w:t> runs of the main document part.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	bodyPath := docxDefaultBody
	if types, err := readZipEntry(zr, contentTypesPath); err == nil {
		if p := mainPartName(string(types)); p != "" {
			bodyPath = p
		}
	}

	body, err := readZipEntry(zr, bodyPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}

	xmlText := wpEnd.ReplaceAllString(string(body), "</w:p><w:t> </w:t>")
	var b strings.Builder
	for _, m := range wtTag.FindAllStringSubmatch(xmlText, -1) {
		b.WriteString(html.UnescapeString(m[1]))
	}
	return strings.Join(strings.Fields(b.String()), " "), nil
}

func mainPartName(contentTypes string) string {
	for _, tag := range overrideTag.FindAllString(contentTypes, -1) {
		if !strings.Contains(tag, `ContentType="`+docxMainType+`"`) {
			continue
		}
		if m := partNameRe.FindStringSubmatch(tag); len(m) > 1 {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return ""
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}
