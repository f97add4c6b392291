package features

import (
	"strings"
	"unicode"
)

// CountSyllables estimates the syllables in an English word by counting vowel groups,
// then correcting for a silent trailing "e" and a non-syllabic "-ed".
// Tokens without letters have no syllables; any other word has at least one.
func CountSyllables(word string) int {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	w := []rune(b.String())
	if len(w) == 0 {
		return 0
	}
	if len(w) <= 3 {
		return 1
	}

	count := 0
	prevVowel := false
	for _, r := range w {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}

	n := len(w)
	switch {
	case w[n-1] == 'e' && !(w[n-2] == 'l' && !isVowel(w[n-3])) && !isVowel(w[n-2]):
		count--
	case w[n-2] == 'e' && w[n-1] == 'd' && w[n-3] != 't' && w[n-3] != 'd' && !isVowel(w[n-3]):
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y', 'à', 'á', 'â', 'ä', 'è', 'é', 'ê', 'ë', 'ì', 'í', 'î', 'ï', 'ò', 'ó', 'ô', 'ö', 'ù', 'ú', 'û', 'ü':
		return true
	}
	return false
}
