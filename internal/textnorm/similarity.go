package textnorm

// Similarity scores two names in [0,1] using Levenshtein distance over their
// normalized forms. Equal normalized forms (including two empty ones) score 1.
func Similarity(a, b string) float64 {
	left := NormalizeName(a)
	right := NormalizeName(b)
	if left == right {
		return 1
	}

	longest := max(len(left), len(right))
	if longest == 0 {
		return 1
	}
	distance := Levenshtein(left, right)
	return 1 - float64(distance)/float64(longest)
}

// Levenshtein returns the edit distance between a and b counted in bytes.
// Callers pass normalized (ASCII) input.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
