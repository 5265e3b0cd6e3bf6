// Package similarity provides guess-versus-answer similarity scoring.
package similarity

import "math"

// Cosine returns the cosine similarity of a and b in [-1, 1]. The second
// return value is false when the similarity is undefined: length mismatch,
// empty input, or a zero-magnitude vector. Callers must not treat this value
// as comparable to the vector store's own ranking scores.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}
