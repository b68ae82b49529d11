// Package composer assembles retrieved statute chunks into a grounded prompt
// and produces the final cited answer.
package composer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paklexai/paklex/internal/llm"
	"github.com/paklexai/paklex/internal/observability"
	"github.com/paklexai/paklex/internal/vector"
)

const (
	// excerptLimit bounds how much chunk text is echoed back per source.
	excerptLimit = 300

	insufficientContext = "I could not find any relevant Pakistani law in the database for this scenario. " +
		"Please ingest the applicable statutes first, or rephrase the question with more legal detail."
)

var blockSeparator = "\n\n" + strings.Repeat("=", 60) + "\n\n"

// Source is a citation record returned alongside the answer.
type Source struct {
	LawName   string `json:"law_name"`
	LawNumber string `json:"law_number"`
	Section   string `json:"section"`
	Year      string `json:"year"`
	Excerpt   string `json:"excerpt"`
}

// Answer is the composed response to a legal question.
type Answer struct {
	Text         string   `json:"answer"`
	Sources      []Source `json:"sources"`
	TotalSources int      `json:"total_sources"`
}

// Composer drives the completion call. Generation parameters come from
// configuration and apply to every question.
type Composer struct {
	provider    llm.Provider
	model       string
	temperature float64
	maxTokens   int
}

// New creates a Composer using the given provider. Non-positive maxTokens
// falls back to 2048.
func New(provider llm.Provider, model string, temperature float64, maxTokens int) *Composer {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Composer{provider: provider, model: model, temperature: temperature, maxTokens: maxTokens}
}

// Compose answers the question from the retrieved chunks. With zero results
// it returns an insufficient-context answer without calling the model.
func (c *Composer) Compose(ctx context.Context, question string, results []vector.SearchResult) (*Answer, error) {
	sources := make([]Source, len(results))
	for i, res := range results {
		sources[i] = sourceFromResult(res)
	}

	if len(results) == 0 {
		return &Answer{Text: insufficientContext, Sources: sources, TotalSources: 0}, nil
	}

	prompt := &llm.Prompt{
		SystemPrompt: legalQuerySystem,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(legalQueryUser, question, formatContext(results))},
		},
	}
	opts := &llm.RequestOptions{Temperature: &c.temperature, MaxTokens: &c.maxTokens}

	ctx, span := observability.StartLLMSpan(ctx, c.provider.Name(), c.model)
	defer span.End()
	start := time.Now()
	resp, err := c.provider.Complete(ctx, prompt, opts)
	if err != nil {
		err = fmt.Errorf("completing answer: %w", err)
		observability.RecordError(span, err)
		return nil, err
	}
	observability.RecordLLMMetrics(span, resp.InputTokens, resp.OutputTokens, time.Since(start))

	return &Answer{Text: resp.Content, Sources: sources, TotalSources: len(sources)}, nil
}

// formatContext renders one numbered block per chunk, separated by a visible
// divider line so the model can tell the statutes apart.
func formatContext(results []vector.SearchResult) string {
	blocks := make([]string, len(results))
	for i, res := range results {
		header := fmt.Sprintf("[LAW %d] %s | %s | Section %s",
			i+1, metaOr(res, "law_name", "Unknown"), metaOr(res, "law_number", "N/A"), metaOr(res, "section", "N/A"))
		blocks[i] = header + "\n" + res.Content
	}
	return strings.Join(blocks, blockSeparator)
}

func sourceFromResult(res vector.SearchResult) Source {
	excerpt := res.Content
	if len(excerpt) > excerptLimit {
		// Character limit, not bytes: never cut a rune in half.
		if r := []rune(excerpt); len(r) > excerptLimit {
			excerpt = string(r[:excerptLimit]) + "..."
		}
	}
	return Source{
		LawName:   metaOr(res, "law_name", "Unknown"),
		LawNumber: metaOr(res, "law_number", "N/A"),
		Section:   metaOr(res, "section", "N/A"),
		Year:      metaOr(res, "year", "N/A"),
		Excerpt:   excerpt,
	}
}

func metaOr(res vector.SearchResult, key, fallback string) string {
	if v, ok := res.Metadata[key]; ok && v != "" {
		return v
	}
	return fallback
}
