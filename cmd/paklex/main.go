package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/paklexai/paklex/internal/chunker"
	"github.com/paklexai/paklex/internal/composer"
	"github.com/paklexai/paklex/internal/config"
	"github.com/paklexai/paklex/internal/embed"
	"github.com/paklexai/paklex/internal/ingest"
	"github.com/paklexai/paklex/internal/llm"
	"github.com/paklexai/paklex/internal/llm/openai"
	"github.com/paklexai/paklex/internal/observability"
	"github.com/paklexai/paklex/internal/retriever"
	"github.com/paklexai/paklex/internal/secrets"
	"github.com/paklexai/paklex/internal/server"
	"github.com/paklexai/paklex/internal/vector"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "paklex",
		Short: "Pakistan law retrieval-augmented question answering service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/paklex.yaml", "Config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	var (
		corpusPath string
		startFrom  int
	)
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Batch-ingest a JSON law corpus into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(configPath, corpusPath, startFrom)
		},
	}
	ingestCmd.Flags().StringVar(&corpusPath, "corpus", "", "Path to JSON corpus ([{file_name, text}, ...])")
	ingestCmd.Flags().IntVar(&startFrom, "start-from", 0, "Skip this many records (resume an interrupted run)")
	_ = ingestCmd.MarkFlagRequired("corpus")

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available LLM providers:")
			fmt.Println()
			for name, url := range llm.KnownProviders {
				fmt.Printf("  %-8s %s\n", name, url)
			}
			fmt.Println("  custom   (set base_url to any OpenAI-compatible endpoint)")
			fmt.Println()
			fmt.Println("Configure in paklex.yaml or via environment:")
			fmt.Println("  PAKLEX_LLM_PROVIDER=ollama")
			fmt.Println("  PAKLEX_LLM_MODEL=llama3.2:1b")
			fmt.Println("  PAKLEX_LLM_EMBED_MODEL=nomic-embed-text")
		},
	}

	rootCmd.AddCommand(serveCmd, ingestCmd, providersCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// components holds the wired service graph shared by serve and ingest.
type components struct {
	cfg      *config.Config
	provider llm.Provider
	embedder *embed.Client
	repo     *vector.QdrantRepository
	tracing  *observability.TracerProvider
}

func setup(ctx context.Context, configPath string) (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	initLogging(cfg.Log.Level)

	tracing, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:  "paklex",
		OTLPEndpoint: cfg.Otel.Endpoint,
		SampleRate:   1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = resolveAPIKey(ctx, cfg)
	}

	factory := llm.NewFactory()
	for _, name := range []string{"ollama", "openai", "custom"} {
		name := name
		factory.Register(name, func(c llm.ProviderConfig) (llm.Provider, error) {
			base := c.BaseURL
			if base == "" {
				base = llm.KnownProviders[name]
			}
			return openai.New(c.APIKey, c.Model, base, c.EmbedModel), nil
		})
	}

	provider, err := factory.Create(llm.ProviderConfig{
		Provider:   cfg.LLM.Provider,
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		BaseURL:    cfg.LLM.BaseURL,
		EmbedModel: cfg.LLM.EmbedModel,
		Timeout:    5 * time.Minute,
		MaxRetries: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("llm.provider must be configured (got %q)", cfg.LLM.Provider)
	}

	repo, err := vector.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection, cfg.Vector.Dimension, cfg.Ingest.StoreBatch)
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureCollection(ctx); err != nil {
		repo.Close()
		return nil, err
	}

	return &components{
		cfg:      cfg,
		provider: provider,
		embedder: embed.New(provider, cfg.Ingest.EmbedBatch),
		repo:     repo,
		tracing:  tracing,
	}, nil
}

// resolveAPIKey looks the LLM API key up in the configured secrets backend.
// Local providers like Ollama need no key, so an empty result is fine.
func resolveAPIKey(ctx context.Context, cfg *config.Config) string {
	scfg := &secrets.Config{Provider: cfg.Secrets.Provider}
	if cfg.Secrets.Provider == "file" {
		scfg.FileConfig = &secrets.FileConfig{Path: cfg.Secrets.File}
	}
	mgr, err := secrets.NewManager(scfg)
	if err != nil {
		slog.Warn("secrets backend unavailable", "error", err)
		return ""
	}
	return mgr.GetOrDefault(ctx, string(secrets.SecretLLMAPIKey), "")
}

func runServe(configPath string) error {
	ctx := context.Background()
	c, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	cfg := c.cfg

	pipeline := ingest.New(c.embedder, c.repo, slog.Default(), ingest.Options{
		DocSplitter:    chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		CorpusSplitter: chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		EmbedBatch:     cfg.Ingest.EmbedBatch,
		FlushEvery:     cfg.Ingest.FlushEvery,
	})
	ret := retriever.New(c.embedder, c.repo, cfg.RAG.TopK, cfg.RAG.FetchK, cfg.RAG.Lambda)
	comp := composer.New(c.provider, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.MaxTokens)

	srv := server.NewServer(server.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Collection:     cfg.Vector.Collection,
		MaxQuestion:    cfg.RAG.MaxQuestion,
	}, pipeline, ret, comp, c.repo)
	srv.RegisterCheck("vector-store", server.VectorStoreHealthChecker(c.repo.Count))
	srv.RegisterCheck("llm", server.LLMHealthChecker(c.provider.Name(), nil))

	shutdown := server.NewShutdownHandler(nil)
	shutdown.Register(server.HTTPServerShutdownHook("api-server", srv.Stop))
	shutdown.Register(server.TracingShutdownHook(c.tracing.Shutdown))
	shutdown.Register(server.VectorStoreShutdownHook(c.repo.Close))
	shutdown.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		shutdown.Shutdown()
		shutdown.Wait()
		return err
	case <-shutdown.Done():
		return nil
	}
}

func runIngest(configPath, corpusPath string, startFrom int) error {
	ctx := context.Background()
	c, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer c.repo.Close()
	defer c.tracing.Shutdown(ctx)
	cfg := c.cfg

	pipeline := ingest.New(c.embedder, c.repo, slog.Default(), ingest.Options{
		DocSplitter:    chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		CorpusSplitter: chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		EmbedBatch:     cfg.Ingest.EmbedBatch,
		FlushEvery:     cfg.Ingest.FlushEvery,
	})

	summary, err := pipeline.IngestCorpus(ctx, corpusPath, startFrom)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 55))
	fmt.Println("Ingestion complete")
	fmt.Printf("  Laws ingested : %d/%d\n", summary.DocsProcessed, summary.DocsTotal-startFrom)
	fmt.Printf("  Total chunks  : %d\n", summary.ChunksStored)
	fmt.Printf("  Total time    : %.1f minutes\n", summary.Elapsed.Minutes())
	fmt.Printf("  Errors        : %d\n", len(summary.Failed))
	fmt.Println(strings.Repeat("=", 55))
	if len(summary.Failed) > 0 {
		data, _ := json.MarshalIndent(summary.Failed, "", "  ")
		fmt.Printf("Failed records:\n%s\n", data)
	}
	return nil
}

func initLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
