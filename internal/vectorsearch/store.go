// Package vectorsearch provides word-vector lookup and nearest-neighbor search.
package vectorsearch

import (
	"context"

	"github.com/ssamantle/ssamantle/internal/models"
)

// Store defines word-vector storage and similarity search. GetVector returns
// (nil, nil) when no vector exists for the word; that is not an error. KNN
// returns neighbors in descending score order and may return fewer than k;
// results may include the query word itself and near-duplicates, which the
// caller is responsible for filtering.
type Store interface {
	Type() string
	GetVector(ctx context.Context, word string) ([]float32, error)
	KNN(ctx context.Context, vector []float32, k int) ([]models.Neighbor, error)
	Size() int
	Close() error
}
