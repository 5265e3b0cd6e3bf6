package vectorsearch

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ssamantle/ssamantle/internal/models"
	"github.com/ssamantle/ssamantle/internal/similarity"
)

// MemoryStore is an in-memory word-vector store using brute-force cosine
// search. Suitable for tests and word pools that fit in RAM; vectors are
// typically loaded from a .vec file at startup or restored from a snapshot.
type MemoryStore struct {
	dimensions int
	words      []string
	vectors    [][]float32
	byWord     map[string]int
	mu         sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store with the given dimension.
func NewMemoryStore(dimensions int) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryStore{
		dimensions: dimensions,
		byWord:     make(map[string]int),
	}, nil
}

// Type returns the store type identifier.
func (m *MemoryStore) Type() string {
	return string(BackendMemory)
}

// Add inserts or replaces vectors for the given words.
func (m *MemoryStore) Add(ctx context.Context, words []string, vectors [][]float32) error {
	if len(words) != len(vectors) {
		return fmt.Errorf("words and vectors length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, word := range words {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch for %q: got %d, expected %d", word, len(vectors[i]), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		if idx, ok := m.byWord[word]; ok {
			m.vectors[idx] = vec
			continue
		}
		m.byWord[word] = len(m.words)
		m.words = append(m.words, word)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// LoadVecFile bulk-loads a .vec file into the store.
func (m *MemoryStore) LoadVecFile(path string) (int, error) {
	n := 0
	err := ParseVecFile(path, m.dimensions, func(word string, vector []float32) error {
		n++
		return m.Add(context.Background(), []string{word}, [][]float32{vector})
	})
	if err != nil {
		return n, err
	}
	return n, nil
}

// GetVector returns a copy of the vector for word, or (nil, nil) when absent.
func (m *MemoryStore) GetVector(ctx context.Context, word string) ([]float32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.byWord[word]
	if !ok {
		return nil, nil
	}
	vec := make([]float32, m.dimensions)
	copy(vec, m.vectors[idx])
	return vec, nil
}

// KNN returns the top-k words by cosine similarity to the query vector,
// descending. Words whose similarity is undefined against the query (zero
// vectors) are skipped.
func (m *MemoryStore) KNN(ctx context.Context, vector []float32, k int) ([]models.Neighbor, error) {
	if len(vector) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vector), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.words) == 0 {
		return nil, nil
	}
	scores := make([]models.Neighbor, 0, len(m.words))
	for i, vec := range m.vectors {
		score, ok := similarity.Cosine(vector, vec)
		if !ok {
			continue
		}
		scores = append(scores, models.Neighbor{Word: m.words[i], Score: score})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Size returns the number of vectors in the store.
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.words)
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}

// Save persists the store to path as a binary snapshot. Format: dimension (4),
// n (4), then per entry: wordLen (4), word bytes, vector (dimension*4 bytes).
func (m *MemoryStore) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.words))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, word := range m.words {
		wordBytes := []byte(word)
		if err := binary.Write(f, binary.LittleEndian, uint32(len(wordBytes))); err != nil {
			return fmt.Errorf("write word len: %w", err)
		}
		if _, err := f.Write(wordBytes); err != nil {
			return fmt.Errorf("write word: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads a snapshot from path and replaces the in-memory contents.
// Dimensions must match. A missing file is not an error; the store is
// unchanged.
func (m *MemoryStore) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, store expects %d", dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.words = make([]string, 0, n)
	m.vectors = make([][]float32, 0, n)
	m.byWord = make(map[string]int, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var wordLen uint32
		if err := binary.Read(f, binary.LittleEndian, &wordLen); err != nil {
			return fmt.Errorf("read word len: %w", err)
		}
		wordBytes := make([]byte, wordLen)
		if _, err := io.ReadFull(f, wordBytes); err != nil {
			return fmt.Errorf("read word: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		word := string(wordBytes)
		m.byWord[word] = len(m.words)
		m.words = append(m.words, word)
		m.vectors = append(m.vectors, bytesToFloat32Slice(buf))
	}
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
