package util

import "strings"

// Similarity returns a normalized similarity score in [0,1] between two
// strings based on Levenshtein distance over their folded forms.
// Identical strings score 1.0, fully dissimilar strings score 0.0.
func Similarity(a, b string) float64 {
	a = FoldKey(a)
	b = FoldKey(b)
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	dist := levenshtein(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

// ContainsFuzzy reports whether phrase appears in text, either verbatim
// (case-insensitive) or as a word window with similarity >= minSim.
// It is used to validate that extracted values are grounded in source text.
func ContainsFuzzy(text, phrase string, minSim float64) bool {
	text = FoldKey(text)
	phrase = FoldKey(phrase)
	if phrase == "" {
		return false
	}
	if strings.Contains(text, phrase) {
		return true
	}

	words := strings.Fields(text)
	window := len(strings.Fields(phrase))
	if window == 0 || window > len(words) {
		return false
	}

	for i := 0; i+window <= len(words); i++ {
		candidate := strings.Join(words[i:i+window], " ")
		if Similarity(candidate, phrase) >= minSim {
			return true
		}
	}
	return false
}

func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
