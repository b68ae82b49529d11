package vector

import (
	"context"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{2, 0}, []float32{5, 0}, 1},
		{"zero_vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMMR_PureRelevanceMatchesSimilarityOrder(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0.5, 0.5}, // less similar
		{1, 0},     // most similar
		{0.9, 0.1}, // second
	}
	got := maximalMarginalRelevance(query, candidates, 1.0, 3)
	want := []int{1, 2, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("selection = %v, want %v", got, want)
		}
	}
}

func TestMMR_DiversityDemotesNearDuplicates(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{0.9, 0.1},   // top match
		{0.9, 0.12},  // near-duplicate of the top match
		{0.6, -0.6},  // different direction, still relevant
	}
	got := maximalMarginalRelevance(query, candidates, 0.5, 2)
	if got[0] != 0 {
		t.Fatalf("first pick = %d, want most relevant (0)", got[0])
	}
	if got[1] != 2 {
		t.Errorf("second pick = %d, want diverse candidate (2), selection %v", got[1], got)
	}
}

func TestMMR_Bounds(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{{1, 0}, {0, 1}}

	t.Run("k_larger_than_pool", func(t *testing.T) {
		got := maximalMarginalRelevance(query, candidates, 0.7, 5)
		if len(got) != 2 {
			t.Errorf("len = %d, want 2", len(got))
		}
	})
	t.Run("zero_k", func(t *testing.T) {
		if got := maximalMarginalRelevance(query, candidates, 0.7, 0); got != nil {
			t.Errorf("got %v, want nil", got)
		}
	})
	t.Run("empty_pool", func(t *testing.T) {
		if got := maximalMarginalRelevance(query, nil, 0.7, 3); got != nil {
			t.Errorf("got %v, want nil", got)
		}
	})
}

func TestMemory_UpsertCountOverwrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	docs := []Document{
		{ID: "a", Content: "first", Vector: []float32{1, 0}},
		{ID: "b", Content: "second", Vector: []float32{0, 1}},
	}
	if err := m.Upsert(ctx, docs); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	n, err := m.Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Count = (%d, %v), want (2, nil)", n, err)
	}

	// Re-inserting an existing id overwrites, not double-counts.
	if err := m.Upsert(ctx, []Document{{ID: "a", Content: "updated", Vector: []float32{1, 1}}}); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	n, _ = m.Count(ctx)
	if n != 2 {
		t.Errorf("Count after overwrite = %d, want 2", n)
	}

	results, err := m.Search(ctx, []float32{1, 1}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results[0].ID != "a" || results[0].Content != "updated" {
		t.Errorf("top result = %+v, want overwritten document a", results[0])
	}
}

func TestMemory_DimensionMismatch(t *testing.T) {
	m := NewMemory(3)
	err := m.Upsert(context.Background(), []Document{{ID: "x", Vector: []float32{1, 0}}})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestMemory_SearchFewerThanK(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)
	_ = m.Upsert(ctx, []Document{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
	})

	results, err := m.Search(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("len = %d, want 2", len(results))
	}

	mmr, err := m.SearchMMR(ctx, []float32{1, 0}, 5, 20, 0.7)
	if err != nil {
		t.Fatalf("SearchMMR: %v", err)
	}
	if len(mmr) != 2 {
		t.Errorf("mmr len = %d, want 2", len(mmr))
	}
}

func TestDocumentID_DeterministicAndDistinct(t *testing.T) {
	a := DocumentID("ppc.txt", 0, "Section 302")
	b := DocumentID("ppc.txt", 0, "Section 302")
	if a != b {
		t.Errorf("same input produced different ids: %s vs %s", a, b)
	}

	variants := []string{
		DocumentID("ppc.txt", 1, "Section 302"),
		DocumentID("crpc.txt", 0, "Section 302"),
		DocumentID("ppc.txt", 0, "Section 303"),
	}
	for i, v := range variants {
		if v == a {
			t.Errorf("variant %d collided with base id", i)
		}
	}
}
