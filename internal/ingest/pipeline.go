// Package ingest orchestrates the document pipeline: split into chunks, tag
// with statute metadata, embed in batches and store in the vector collection.
// It serves both the single-upload HTTP path and the resumable batch corpus
// loader.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/paklexai/paklex/internal/chunker"
	"github.com/paklexai/paklex/internal/lawmeta"
	"github.com/paklexai/paklex/internal/observability"
	"github.com/paklexai/paklex/internal/vector"
)

// Embedder converts chunk texts into vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the slice of the vector repository the pipeline writes to.
type Store interface {
	Upsert(ctx context.Context, docs []vector.Document) error
}

// Failure records one corpus entry that could not be ingested.
type Failure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Summary reports the outcome of a corpus run.
type Summary struct {
	DocsProcessed      int           `json:"docs_processed"`
	DocsTotal          int           `json:"docs_total"`
	ChunksStored       int           `json:"chunks_stored"`
	Elapsed            time.Duration `json:"elapsed"`
	DocsPerMinute      float64       `json:"docs_per_minute"`
	EstimatedRemaining time.Duration `json:"estimated_remaining"`
	Failed             []Failure     `json:"failed"`
}

// Options tune the pipeline. Zero values select the defaults: 1000/200
// splitting for uploads, 1500/150 for corpus records, embed batch 50, flush
// every 10 documents.
type Options struct {
	DocSplitter    *chunker.Splitter
	CorpusSplitter *chunker.Splitter
	EmbedBatch     int
	FlushEvery     int
}

// Pipeline runs documents through chunk, tag, embed and store.
type Pipeline struct {
	doc        *chunker.Splitter
	corpus     *chunker.Splitter
	embedder   Embedder
	store      Store
	log        *slog.Logger
	embedBatch int
	flushEvery int
}

func New(embedder Embedder, store Store, log *slog.Logger, opts Options) *Pipeline {
	if opts.DocSplitter == nil {
		opts.DocSplitter = chunker.New(1000, 200)
	}
	if opts.CorpusSplitter == nil {
		opts.CorpusSplitter = chunker.New(1500, 150)
	}
	if opts.EmbedBatch <= 0 {
		opts.EmbedBatch = 50
	}
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = 10
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		doc:        opts.DocSplitter,
		corpus:     opts.CorpusSplitter,
		embedder:   embedder,
		store:      store,
		log:        log,
		embedBatch: opts.EmbedBatch,
		flushEvery: opts.FlushEvery,
	}
}

// IngestDocument processes one uploaded file and returns the number of chunks
// stored. The caller's citation fields become each chunk's metadata; the
// section is still extracted per chunk.
func (p *Pipeline) IngestDocument(ctx context.Context, up Upload) (int, error) {
	text, err := LoadText(up.FileName, up.Data)
	if err != nil {
		return 0, err
	}

	chunks := p.doc.Split(text)
	docs := make([]vector.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vector.Document{
			ID:      vector.DocumentID(up.FileName, i, chunk),
			Content: chunk,
			Metadata: map[string]string{
				"law_name":    up.LawName,
				"law_number":  up.LawNumber,
				"year":        up.Year,
				"section":     lawmeta.Section(chunk),
				"chunk_index": strconv.Itoa(i),
				"source_file": up.FileName,
			},
		}
	}

	if err := p.embedAndStore(ctx, docs); err != nil {
		return 0, err
	}
	p.log.Info("document ingested", "file", up.FileName, "law", up.LawName, "chunks", len(chunks))
	return len(chunks), nil
}

// IngestCorpus runs the batch loader over a JSON corpus, skipping the first
// startFrom records. Each record is isolated: a failure is recorded in the
// summary and the run continues. Pending chunks are flushed to the store every
// flushEvery documents and once more at the end.
func (p *Pipeline) IngestCorpus(ctx context.Context, path string, startFrom int) (*Summary, error) {
	entries, err := LoadCorpus(path)
	if err != nil {
		return nil, err
	}
	if startFrom < 0 {
		startFrom = 0
	}
	if startFrom > len(entries) {
		startFrom = len(entries)
	}

	summary := &Summary{DocsTotal: len(entries)}
	start := time.Now()
	var pending []vector.Document

	p.log.Info("corpus ingestion starting", "path", path, "total", len(entries), "start_from", startFrom)

	for i := startFrom; i < len(entries); i++ {
		if err := ctx.Err(); err != nil {
			summary.Elapsed = time.Since(start)
			return summary, err
		}

		entry := entries[i]
		name := entry.FileName
		if name == "" {
			name = fmt.Sprintf("unknown_%d", i+1)
		}
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			p.log.Warn("empty corpus entry, skipping", "index", i+1, "file", name)
			continue
		}

		pending = append(pending, p.corpusDocuments(name, text)...)
		summary.DocsProcessed++

		if summary.DocsProcessed%p.flushEvery == 0 || i == len(entries)-1 {
			count := len(pending)
			if err := p.embedAndStore(ctx, pending); err != nil {
				summary.Failed = append(summary.Failed, Failure{Name: name, Reason: err.Error()})
				p.log.Error("flush failed", "file", name, "pending", count, "error", err)
				// Try not to lose a large backlog; a second failure is
				// accepted and the backlog carries over.
				if count >= p.embedBatch*5 {
					if err := p.embedAndStore(ctx, pending); err == nil {
						summary.ChunksStored += count
						pending = nil
					}
				}
				continue
			}
			summary.ChunksStored += count
			pending = nil
			p.logProgress(summary, startFrom, start, count)
		}
	}

	if len(pending) > 0 {
		count := len(pending)
		if err := p.embedAndStore(ctx, pending); err != nil {
			summary.Failed = append(summary.Failed, Failure{Name: "final flush", Reason: err.Error()})
			p.log.Error("final flush failed", "pending", count, "error", err)
		} else {
			summary.ChunksStored += count
		}
	}

	summary.Elapsed = time.Since(start)
	if minutes := summary.Elapsed.Minutes(); minutes > 0 {
		summary.DocsPerMinute = float64(summary.DocsProcessed) / minutes
	}
	p.log.Info("corpus ingestion complete",
		"docs", summary.DocsProcessed,
		"of", summary.DocsTotal-startFrom,
		"chunks", summary.ChunksStored,
		"failed", len(summary.Failed),
		"elapsed", summary.Elapsed.Round(time.Second))
	return summary, nil
}

// corpusDocuments splits one corpus record and tags every chunk. The display
// name prefers the cleaned file name unless it is degenerate, in which case
// the extracted title wins.
func (p *Pipeline) corpusDocuments(filename, text string) []vector.Document {
	title := lawmeta.Title(text)
	year := lawmeta.Year(text)
	display := lawmeta.CleanLawName(filename)
	if len(display) < 5 {
		display = title
	}
	source := filename
	if r := []rune(source); len(r) > 30 {
		source = string(r[:30])
	}

	chunks := p.corpus.Split(text)
	docs := make([]vector.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vector.Document{
			ID:      vector.DocumentID(filename, i, chunk),
			Content: chunk,
			Metadata: map[string]string{
				"law_name":    display,
				"law_number":  "Source: " + source,
				"year":        year,
				"section":     lawmeta.Section(chunk),
				"chunk_index": strconv.Itoa(i),
				"source_file": filename,
			},
		}
	}
	return docs
}

// embedAndStore fills in vectors for the documents and writes them out.
func (p *Pipeline) embedAndStore(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}
	ctx, span := observability.StartIngestSpan(ctx, len(docs))
	defer span.End()

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		observability.RecordError(span, err)
		return err
	}
	for i := range docs {
		docs[i].Vector = vectors[i]
	}
	if err := p.store.Upsert(ctx, docs); err != nil {
		observability.RecordError(span, err)
		return err
	}
	return nil
}

func (p *Pipeline) logProgress(summary *Summary, startFrom int, start time.Time, flushed int) {
	elapsed := time.Since(start)
	rate := 0.0
	if minutes := elapsed.Minutes(); minutes > 0 {
		rate = float64(summary.DocsProcessed) / minutes
	}
	remaining := summary.DocsTotal - startFrom - summary.DocsProcessed
	var eta time.Duration
	if rate > 0 {
		eta = time.Duration(float64(remaining) / rate * float64(time.Minute))
	}
	summary.DocsPerMinute = rate
	summary.EstimatedRemaining = eta
	p.log.Info("flushed",
		"chunks", flushed,
		"docs", summary.DocsProcessed,
		"laws_per_min", fmt.Sprintf("%.1f", rate),
		"eta", eta.Round(time.Minute))
}
