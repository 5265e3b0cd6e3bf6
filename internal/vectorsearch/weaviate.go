package vectorsearch

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	wmodels "github.com/weaviate/weaviate/entities/models"

	"github.com/ssamantle/ssamantle/internal/models"
)

const loadBatchSize = 1000

// WeaviateConfig holds connection settings for a Weaviate-backed store.
type WeaviateConfig struct {
	Scheme string
	Host   string
	Class  string
}

// WeaviateStore is a word-vector store backed by a Weaviate instance. Objects
// carry a "word" text property and an externally supplied vector
// (vectorizer "none"); object ids are derived from the word so reloading the
// same .vec file upserts instead of duplicating.
type WeaviateStore struct {
	client *weaviate.Client
	class  string
}

// NewWeaviateStore connects to Weaviate and verifies it is reachable.
func NewWeaviateStore(cfg WeaviateConfig) (*WeaviateStore, error) {
	client, err := weaviate.NewClient(weaviate.Config{
		Scheme: cfg.Scheme,
		Host:   cfg.Host,
	})
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	ready, err := client.Misc().ReadyChecker().Do(context.Background())
	if err != nil {
		return nil, fmt.Errorf("weaviate not reachable: %w", err)
	}
	if !ready {
		return nil, fmt.Errorf("weaviate at %s://%s is not ready", cfg.Scheme, cfg.Host)
	}
	return &WeaviateStore{client: client, class: cfg.Class}, nil
}

// Type returns the store type identifier.
func (w *WeaviateStore) Type() string {
	return string(BackendWeaviate)
}

// GetVector looks up the vector for word via a where-filter query, returning
// (nil, nil) when the word has no object.
func (w *WeaviateStore) GetVector(ctx context.Context, word string) ([]float32, error) {
	where := filters.Where().
		WithPath([]string{"word"}).
		WithOperator(filters.Equal).
		WithValueText(word)
	fields := []graphql.Field{
		{Name: "word"},
		{Name: "_additional { vector }"},
	}
	result, err := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(fields...).
		WithWhere(where).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("get vector for %q: %w", word, err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("get vector for %q: %s", word, result.Errors[0].Message)
	}
	hits := w.hits(result)
	if len(hits) == 0 {
		return nil, nil
	}
	additional, ok := hits[0]["_additional"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	raw, ok := additional["vector"].([]interface{})
	if !ok {
		return nil, nil
	}
	vec := make([]float32, len(raw))
	for i, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("get vector for %q: non-numeric component at %d", word, i)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

// KNN runs a nearVector query and returns neighbors ranked descending by
// 1 - distance.
func (w *WeaviateStore) KNN(ctx context.Context, vector []float32, k int) ([]models.Neighbor, error) {
	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	fields := []graphql.Field{
		{Name: "word"},
		{Name: "_additional { distance }"},
	}
	result, err := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("knn search: %s", result.Errors[0].Message)
	}
	hits := w.hits(result)
	out := make([]models.Neighbor, 0, len(hits))
	for _, hit := range hits {
		word, _ := hit["word"].(string)
		if word == "" {
			continue
		}
		score := 0.0
		if additional, ok := hit["_additional"].(map[string]interface{}); ok {
			if distance, ok := additional["distance"].(float64); ok {
				score = 1 - distance
			}
		}
		out = append(out, models.Neighbor{Word: word, Score: score})
	}
	return out, nil
}

func (w *WeaviateStore) hits(result *wmodels.GraphQLResponse) []map[string]interface{} {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := data[w.class].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// Size returns the object count of the class, or 0 when it cannot be read.
func (w *WeaviateStore) Size() int {
	fields := []graphql.Field{
		{Name: "meta", Fields: []graphql.Field{{Name: "count"}}},
	}
	result, err := w.client.GraphQL().Aggregate().
		WithClassName(w.class).
		WithFields(fields...).
		Do(context.Background())
	if err != nil || len(result.Errors) > 0 {
		return 0
	}
	data, ok := result.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0
	}
	rows, ok := data[w.class].([]interface{})
	if !ok || len(rows) == 0 {
		return 0
	}
	row, ok := rows[0].(map[string]interface{})
	if !ok {
		return 0
	}
	meta, ok := row["meta"].(map[string]interface{})
	if !ok {
		return 0
	}
	count, _ := meta["count"].(float64)
	return int(count)
}

// Close is a no-op; the underlying HTTP client needs no teardown.
func (w *WeaviateStore) Close() error {
	return nil
}

// EnsureSchema creates the word class if it does not exist. The class uses no
// vectorizer; vectors are supplied at import time.
func (w *WeaviateStore) EnsureSchema(ctx context.Context) error {
	exists, err := w.client.Schema().ClassExistenceChecker().WithClassName(w.class).Do(ctx)
	if err != nil {
		return fmt.Errorf("check class %s: %w", w.class, err)
	}
	if exists {
		return nil
	}
	class := &wmodels.Class{
		Class:       w.class,
		Description: "A word and its embedding vector.",
		Vectorizer:  "none",
		Properties: []*wmodels.Property{
			{
				Name:         "word",
				DataType:     []string{"text"},
				Description:  "The word itself.",
				Tokenization: "field",
			},
		},
	}
	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", w.class, err)
	}
	return nil
}

// LoadVecFile bulk-imports a .vec file in batches. Returns the number of
// objects sent.
func (w *WeaviateStore) LoadVecFile(ctx context.Context, path string, dim int) (int, error) {
	if err := w.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	var (
		batch []*wmodels.Object
		total int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := w.client.Batch().ObjectsBatcher().WithObjects(batch...).Do(ctx); err != nil {
			return fmt.Errorf("batch import: %w", err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}
	err := ParseVecFile(path, dim, func(word string, vector []float32) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch = append(batch, &wmodels.Object{
			ID:         wordObjectID(word),
			Class:      w.class,
			Properties: map[string]interface{}{"word": word},
			Vector:     wmodels.C11yVector(vector),
		})
		if len(batch) >= loadBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// wordObjectID derives a stable object id from the word so repeated loads
// upsert rather than duplicate.
func wordObjectID(word string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(word)).String())
}
