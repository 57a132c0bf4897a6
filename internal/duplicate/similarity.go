package duplicate

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity returns the normalized Levenshtein similarity of a and b after
// trimming and lower-casing: (maxLen - distance) / maxLen, in [0, 1].
func Similarity(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == b {
		return 1
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return float64(maxLen-d) / float64(maxLen)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
