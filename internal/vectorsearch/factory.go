package vectorsearch

import "fmt"

// Backend represents the type of vector store to use.
type Backend string

const (
	// BackendMemory uses in-memory brute-force search over a loaded .vec
	// file. Good for small word pools and tests.
	BackendMemory Backend = "memory"
	// BackendWeaviate uses a remote Weaviate instance for ANN search.
	BackendWeaviate Backend = "weaviate"
)

// Options holds backend-specific settings for NewStore.
type Options struct {
	Dimensions   int
	VecPath      string
	SnapshotPath string
	Weaviate     WeaviateConfig
}

// NewStore creates a vector store of the specified backend.
// Supported backends: "memory" (default), "weaviate". For the memory backend
// a snapshot is restored when present, otherwise the .vec file is loaded.
func NewStore(backend string, opts Options) (Store, error) {
	switch Backend(backend) {
	case BackendMemory, "":
		store, err := NewMemoryStore(opts.Dimensions)
		if err != nil {
			return nil, err
		}
		if opts.SnapshotPath != "" {
			if err := store.Load(opts.SnapshotPath); err != nil {
				return nil, fmt.Errorf("load snapshot: %w", err)
			}
		}
		if store.Size() == 0 && opts.VecPath != "" {
			if _, err := store.LoadVecFile(opts.VecPath); err != nil {
				return nil, fmt.Errorf("load vec file: %w", err)
			}
		}
		return store, nil
	case BackendWeaviate:
		return NewWeaviateStore(opts.Weaviate)
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (supported: memory, weaviate)", backend)
	}
}
