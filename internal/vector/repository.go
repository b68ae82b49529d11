// Package vector provides the gateway to the external vector store: collection
// management, batched upserts and similarity / maximal-marginal-relevance
// search.
package vector

import (
	"context"
	"errors"
)

// ErrStore marks a failure of the external vector store.
var ErrStore = errors.New("vector store error")

// DefaultStoreBatch bounds the number of records written per store call.
const DefaultStoreBatch = 200

// Document represents a chunk of statute text with its embedding.
type Document struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// SearchResult is a single match from a similarity search.
type SearchResult struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]string
}

// Repository provides vector storage and similarity search against one
// collection.
type Repository interface {
	// EnsureCollection creates the collection if it does not exist.
	// Idempotent.
	EnsureCollection(ctx context.Context) error
	// Upsert inserts or updates documents. Writes are split into sub-batches;
	// sub-batches are independent store calls, not one transaction.
	Upsert(ctx context.Context, docs []Document) error
	// Search finds the top-k most similar documents.
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	// SearchMMR fetches fetchK candidates and re-ranks them with maximal
	// marginal relevance. lambda in [0,1]: 1 is pure relevance, 0 pure
	// diversity.
	SearchMMR(ctx context.Context, vector []float32, topK, fetchK int, lambda float64) ([]SearchResult, error)
	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int64, error)
	// Close releases resources.
	Close() error
}
