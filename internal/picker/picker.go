// Package picker selects the answer word for a calendar date.
package picker

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"strings"
)

// ErrEmptyCandidates is returned when no usable candidate remains after
// trimming and discarding blank entries.
var ErrEmptyCandidates = errors.New("no usable answer candidates")

// Pick returns the answer for date from candidates. For each non-blank trimmed
// candidate it digests "date|candidate" with SHA-256 and selects the candidate
// with the lexicographically smallest digest. The result depends only on the
// date and the candidate set contents, not on their order, so every process
// holding the same inputs picks the same word. Digest ties are broken by
// first-seen order; with SHA-256 they are negligible. Pick performs no I/O and
// is safe for concurrent use.
func Pick(date string, candidates []string) (string, error) {
	var (
		best       string
		bestDigest []byte
	)
	for _, c := range candidates {
		w := strings.TrimSpace(c)
		if w == "" {
			continue
		}
		sum := sha256.Sum256([]byte(date + "|" + w))
		if bestDigest == nil || bytes.Compare(sum[:], bestDigest) < 0 {
			bestDigest = append(bestDigest[:0], sum[:]...)
			best = w
		}
	}
	if bestDigest == nil {
		return "", ErrEmptyCandidates
	}
	return best, nil
}
