package embed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/paklexai/paklex/internal/llm"
)

// stubProvider embeds each text as a vector derived from its length, and
// records the size of every upstream batch it receives.
type stubProvider struct {
	batchSizes []int
	fail       bool
}

func (s *stubProvider) Complete(ctx context.Context, p *llm.Prompt, o *llm.RequestOptions) (*llm.Response, error) {
	return nil, errors.New("not implemented")
}

func (s *stubProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.fail {
		return nil, fmt.Errorf("503 Service Unavailable")
	}
	s.batchSizes = append(s.batchSizes, len(texts))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (s *stubProvider) Name() string { return "stub" }

func TestEmbedBatch_PreservesOrderAndLength(t *testing.T) {
	tests := []struct {
		name      string
		batchSize int
		count     int
	}{
		{"under_limit", 50, 7},
		{"at_limit", 5, 5},
		{"over_limit", 5, 12},
		{"single", 50, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubProvider{}
			c := New(stub, tt.batchSize)

			texts := make([]string, tt.count)
			for i := range texts {
				// Distinct lengths make each expected vector unique.
				texts[i] = fmt.Sprintf("%0*d", i+1, 0)
			}

			vectors, err := c.EmbedBatch(context.Background(), texts)
			if err != nil {
				t.Fatalf("EmbedBatch: %v", err)
			}
			if len(vectors) != tt.count {
				t.Fatalf("got %d vectors, want %d", len(vectors), tt.count)
			}
			for i, v := range vectors {
				if v[0] != float32(len(texts[i])) {
					t.Errorf("vectors[%d] = %v, does not correspond to texts[%d]", i, v, i)
				}
			}
		})
	}
}

func TestEmbedBatch_SplitsAtBatchSize(t *testing.T) {
	stub := &stubProvider{}
	c := New(stub, 5)

	texts := make([]string, 12)
	for i := range texts {
		texts[i] = "t"
	}
	if _, err := c.EmbedBatch(context.Background(), texts); err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}

	want := []int{5, 5, 2}
	if len(stub.batchSizes) != len(want) {
		t.Fatalf("upstream calls = %v, want %v", stub.batchSizes, want)
	}
	for i := range want {
		if stub.batchSizes[i] != want[i] {
			t.Errorf("batch %d size = %d, want %d", i, stub.batchSizes[i], want[i])
		}
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	c := New(&stubProvider{}, 5)
	vectors, err := c.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vectors != nil {
		t.Errorf("got %v, want nil", vectors)
	}
}

func TestEmbedBatch_UpstreamFailureWrapsErrService(t *testing.T) {
	c := New(&stubProvider{fail: true}, 5)
	_, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrService) {
		t.Errorf("err = %v, want ErrService", err)
	}
}

func TestEmbedQuery(t *testing.T) {
	c := New(&stubProvider{}, 5)
	v, err := c.EmbedQuery(context.Background(), "bail")
	if err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	if v[0] != 4 {
		t.Errorf("vector = %v, want [4]", v)
	}
}
