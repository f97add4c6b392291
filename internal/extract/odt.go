package extract

import (
	"fmt"

	"github.com/lu4p/cat"
)

// extractOpenDocument extracts text from .odt and .rtf bytes.
func extractOpenDocument(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}
	return text, nil
}
