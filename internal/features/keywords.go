package features

import (
	"math"
	"sort"
	"unicode/utf8"

	"go.uber.org/zap"
)

type termWeight struct {
	term   string
	weight float64
}

// Keywords returns the top TF-IDF terms of each text, highest weight first.
// Terms come from the standard analyzer (lowercase, English stop words removed) and must be
// at least two characters. A term must appear in min(2, len(texts)) documents and the vocabulary
// keeps the most frequent terms up to the configured limit. Texts with no positive weights get an
// empty list.
func (e *Engine) Keywords(texts []string) [][]string {
	weights := e.tfidf(texts)
	out := make([][]string, len(texts))
	for i, row := range weights {
		n := e.topKeywords
		if n > len(row) {
			n = len(row)
		}
		kw := make([]string, 0, n)
		for _, tw := range row[:n] {
			kw = append(kw, tw.term)
		}
		out[i] = kw
	}
	return out
}

// tfidf returns, for each text, its positive term weights sorted by weight descending and
// term ascending. Rows are L2-normalised.
func (e *Engine) tfidf(texts []string) [][]termWeight {
	n := len(texts)
	out := make([][]termWeight, n)
	if n == 0 {
		return out
	}

	counts := make([]map[string]int, n)
	df := make(map[string]int)
	total := make(map[string]int)
	for i, t := range texts {
		c := make(map[string]int)
		for _, term := range e.terms(Clean(t)) {
			c[term]++
		}
		counts[i] = c
		for term, k := range c {
			df[term]++
			total[term] += k
		}
	}

	minDF := 2
	if n < minDF {
		minDF = n
	}
	vocab := make([]string, 0, len(df))
	for term, d := range df {
		if d >= minDF {
			vocab = append(vocab, term)
		}
	}
	if len(vocab) > e.maxFeatures {
		sort.Slice(vocab, func(a, b int) bool {
			if total[vocab[a]] != total[vocab[b]] {
				return total[vocab[a]] > total[vocab[b]]
			}
			return vocab[a] < vocab[b]
		})
		vocab = vocab[:e.maxFeatures]
	}
	if len(vocab) == 0 {
		e.logger.Debug("Empty keyword vocabulary", zap.Int("documents", n))
	}
	inVocab := make(map[string]bool, len(vocab))
	for _, term := range vocab {
		inVocab[term] = true
	}

	for i, c := range counts {
		row := make([]termWeight, 0, len(c))
		var norm float64
		for term, k := range c {
			if !inVocab[term] {
				continue
			}
			idf := math.Log(float64(1+n)/float64(1+df[term])) + 1
			w := float64(k) * idf
			norm += w * w
			row = append(row, termWeight{term: term, weight: w})
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range row {
				row[j].weight /= norm
			}
		}
		sort.Slice(row, func(a, b int) bool {
			if row[a].weight != row[b].weight {
				return row[a].weight > row[b].weight
			}
			return row[a].term < row[b].term
		})
		out[i] = row
	}
	return out
}

// terms tokenises clean text with the standard analyzer and drops single-character tokens.
func (e *Engine) terms(clean string) []string {
	if clean == "" || e.analyze == nil {
		return nil
	}
	stream := e.analyze([]byte(clean))
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		if utf8.RuneCount(tok.Term) < 2 {
			continue
		}
		out = append(out, string(tok.Term))
	}
	return out
}
