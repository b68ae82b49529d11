package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepository is an in-process Repository using brute-force cosine
// similarity. It backs tests and local development without a Qdrant instance.
type MemoryRepository struct {
	mu        sync.RWMutex
	dimension int
	docs      map[string]Document
	order     []string
}

// NewMemory creates an in-memory repository expecting vectors of the given
// dimension.
func NewMemory(dimension int) *MemoryRepository {
	return &MemoryRepository{
		dimension: dimension,
		docs:      make(map[string]Document),
	}
}

func (m *MemoryRepository) EnsureCollection(ctx context.Context) error { return nil }

// Upsert stores documents keyed by ID; re-inserting an existing ID overwrites
// the previous record.
func (m *MemoryRepository) Upsert(ctx context.Context, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		if len(d.Vector) != m.dimension {
			return fmt.Errorf("%w: document %s has dimension %d, collection expects %d", ErrStore, d.ID, len(d.Vector), m.dimension)
		}
		if _, exists := m.docs[d.ID]; !exists {
			m.order = append(m.order, d.ID)
		}
		m.docs[d.ID] = d
	}
	return nil
}

func (m *MemoryRepository) Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.search(vector, topK), nil
}

func (m *MemoryRepository) SearchMMR(ctx context.Context, vector []float32, topK, fetchK int, lambda float64) ([]SearchResult, error) {
	if fetchK < topK {
		fetchK = topK
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	pool := m.search(vector, fetchK)
	candidates := make([][]float32, len(pool))
	for i, res := range pool {
		candidates[i] = m.docs[res.ID].Vector
	}

	order := maximalMarginalRelevance(vector, candidates, lambda, topK)
	results := make([]SearchResult, len(order))
	for i, idx := range order {
		results[i] = pool[idx]
	}
	return results, nil
}

func (m *MemoryRepository) search(vector []float32, topK int) []SearchResult {
	results := make([]SearchResult, 0, len(m.order))
	for _, id := range m.order {
		d := m.docs[id]
		results = append(results, SearchResult{
			ID:       d.ID,
			Score:    float32(cosineSimilarity(vector, d.Vector)),
			Content:  d.Content,
			Metadata: d.Metadata,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results
}

func (m *MemoryRepository) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

func (m *MemoryRepository) Close() error { return nil }
