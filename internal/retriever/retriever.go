// Package retriever turns a natural-language question into the most relevant,
// mutually diverse stored chunks.
package retriever

import (
	"context"
	"fmt"

	"github.com/paklexai/paklex/internal/observability"
	"github.com/paklexai/paklex/internal/vector"
)

// Embedder produces the query vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the slice of the vector repository the retriever needs.
type Searcher interface {
	SearchMMR(ctx context.Context, vec []float32, topK, fetchK int, lambda float64) ([]vector.SearchResult, error)
}

// Retriever embeds a question and re-ranks candidates with maximal marginal
// relevance. The policy parameters are fixed at construction.
type Retriever struct {
	embedder Embedder
	searcher Searcher
	topK     int
	fetchK   int
	lambda   float64
}

// New creates a Retriever. Non-positive topK or fetchK fall back to 5 and 20;
// fetchK is raised to topK when smaller.
func New(embedder Embedder, searcher Searcher, topK, fetchK int, lambda float64) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	if fetchK <= 0 {
		fetchK = 20
	}
	if fetchK < topK {
		fetchK = topK
	}
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		topK:     topK,
		fetchK:   fetchK,
		lambda:   lambda,
	}
}

// Retrieve returns up to topK chunks relevant to the question. A collection
// holding fewer records than topK yields a shorter result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]vector.SearchResult, error) {
	vec, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	ctx, span := observability.StartSearchSpan(ctx, r.topK, r.fetchK)
	defer span.End()
	results, err := r.searcher.SearchMMR(ctx, vec, r.topK, r.fetchK, r.lambda)
	if err != nil {
		err = fmt.Errorf("searching: %w", err)
		observability.RecordError(span, err)
		return nil, err
	}
	return results, nil
}
