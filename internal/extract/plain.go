package extract

import "github.com/hyperjump/pagegrade/pkg/utils"

// extractPlain returns content as a string with invalid UTF-8 replaced.
func extractPlain(content []byte) (string, error) {
	return utils.ToValidUTF8(string(content)), nil
}
