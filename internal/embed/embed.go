// Package embed converts batches of text into dense vectors through the
// configured LLM provider's embedding endpoint, enforcing a batch-size limit
// per upstream call.
package embed

import (
	"context"
	"errors"
	"fmt"

	"github.com/paklexai/paklex/internal/llm"
	"github.com/paklexai/paklex/internal/observability"
)

// ErrService marks a failure of the external embedding service. A failed
// upstream call fails the whole EmbedBatch; batch-level recovery is the
// ingestion pipeline's concern.
var ErrService = errors.New("embedding service error")

// DefaultBatchSize bounds the number of texts sent per upstream call.
const DefaultBatchSize = 50

// Client batches embedding requests.
type Client struct {
	provider  llm.Provider
	batchSize int
}

// New creates an embedding client. batchSize <= 0 selects DefaultBatchSize.
func New(provider llm.Provider, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Client{provider: provider, batchSize: batchSize}
}

// EmbedBatch returns one vector per input text, in input order. Inputs larger
// than the batch size are split into sequential upstream calls.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, span := observability.StartEmbedSpan(ctx, len(texts))
	defer span.End()

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.provider.Embed(ctx, texts[start:end])
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrService, err)
			observability.RecordError(span, err)
			return nil, err
		}
		if len(batch) != end-start {
			err = fmt.Errorf("%w: got %d vectors for %d texts", ErrService, len(batch), end-start)
			observability.RecordError(span, err)
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// EmbedQuery embeds a single text as a one-element batch.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
