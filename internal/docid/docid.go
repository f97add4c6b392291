// Package docid provides deterministic document IDs for analysed URLs, texts and watched files.
package docid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const (
	urlPrefix  = "url:"
	textPrefix = "text:"
	filePrefix = "file:"
)

// ForURL returns a stable ID for a page address. Surrounding whitespace and a trailing
// slash on the path do not change the ID.
func ForURL(u string) string {
	normalized := strings.TrimSpace(u)
	if len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return urlPrefix + digest(normalized)
}

// ForText returns a stable ID for raw text input.
func ForText(text string) string {
	return textPrefix + digest(text)
}

// ForFile returns a stable ID for the given absolute path.
func ForFile(absolutePath string) string {
	return filePrefix + digest(filepath.Clean(absolutePath))
}

func digest(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}
