package features

import (
	"regexp"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

var (
	tokenizerOnce sync.Once
	tokenizer     *sentences.DefaultSentenceTokenizer

	sentenceEnd = regexp.MustCompile(`[.!?]+(\s|$)`)
)

func sentenceTokenizer() *sentences.DefaultSentenceTokenizer {
	tokenizerOnce.Do(func() {
		t, err := english.NewSentenceTokenizer(nil)
		if err == nil {
			tokenizer = t
		}
	})
	return tokenizer
}

// CountSentences returns the number of sentences in text using the punkt English model.
// Non-empty text always has at least one sentence.
func CountSentences(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	n := 0
	if t := sentenceTokenizer(); t != nil {
		for _, s := range t.Tokenize(text) {
			if strings.TrimSpace(s.Text) != "" {
				n++
			}
		}
	} else {
		n = len(sentenceEnd.FindAllStringIndex(text, -1))
		if !sentenceEnd.MatchString(text[len(text)-1:]) {
			n++
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}
