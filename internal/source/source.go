// Package source loads the pool of eligible answer words.
package source

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the backing candidate list cannot be read.
var ErrUnavailable = errors.New("answer source unavailable")

// Source yields the candidate words for answer selection. Implementations
// trim entries and drop blanks and duplicates; order is preserved but callers
// must not depend on it.
type Source interface {
	ListAnswers(ctx context.Context) ([]string, error)
}
