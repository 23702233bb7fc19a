package match

import (
	"math"
	"strings"
)

// Score returns a 0-100 similarity between two raw strings. Both are
// normalized first; 100 means identical after normalization. The score is
// symmetric and has no memory of prior calls.
func Score(expected, extracted string) int {
	return ratio(Normalize(expected), Normalize(extracted))
}

// CaseInsensitiveScore returns a 0-100 similarity between two strings
// compared case-insensitively but otherwise as given, so punctuation and
// wording differences still count against the score. Used for the health
// warning text check, where capitalization is judged separately.
func CaseInsensitiveScore(a, b string) int {
	return ratio(strings.ToLower(a), strings.ToLower(b))
}

func ratio(a, b string) int {
	if a == b {
		return 100
	}

	ra := []rune(a)
	rb := []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 100
	}

	dist := levenshteinDistance(ra, rb)
	return int(math.Round((1 - float64(dist)/float64(maxLen)) * 100))
}

// levenshteinDistance computes the unit-cost edit distance between two rune
// slices.
func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := matrix[i-1][j] + 1
			ins := matrix[i][j-1] + 1
			sub := matrix[i-1][j-1] + cost

			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			matrix[i][j] = min
		}
	}

	return matrix[len(a)][len(b)]
}
