package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is loaded once at startup and
// passed by value into component constructors; nothing reads it ambiently.
type Config struct {
	Server  Server  `mapstructure:"server"`
	LLM     LLM     `mapstructure:"llm"`
	Vector  Vector  `mapstructure:"vector"`
	RAG     RAG     `mapstructure:"rag"`
	Ingest  Ingest  `mapstructure:"ingest"`
	Secrets Secrets `mapstructure:"secrets"`
	Otel    Otel    `mapstructure:"otel"`
	Log     Log     `mapstructure:"log"`
}

type Server struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LLM struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	EmbedModel  string  `mapstructure:"embed_model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type Vector struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	Dimension  int    `mapstructure:"dimension"`
}

type RAG struct {
	ChunkSize    int     `mapstructure:"chunk_size"`
	ChunkOverlap int     `mapstructure:"chunk_overlap"`
	TopK         int     `mapstructure:"top_k"`
	FetchK       int     `mapstructure:"fetch_k"`
	Lambda       float64 `mapstructure:"lambda"`
	MaxQuestion  int     `mapstructure:"max_question"`
}

type Ingest struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	EmbedBatch   int `mapstructure:"embed_batch"`
	StoreBatch   int `mapstructure:"store_batch"`
	FlushEvery   int `mapstructure:"flush_every"`
}

type Secrets struct {
	Provider string `mapstructure:"provider"`
	File     string `mapstructure:"file"`
}

type Otel struct {
	Endpoint string `mapstructure:"endpoint"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// Default returns the configuration used when no file overrides are present.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost"},
		},
		LLM: LLM{
			Provider:    "ollama",
			Model:       "llama3.2:1b",
			EmbedModel:  "nomic-embed-text",
			BaseURL:     "http://localhost:11434/v1",
			Temperature: 0.1,
			MaxTokens:   2048,
		},
		Vector: Vector{
			Host:       "localhost",
			Port:       6334,
			Collection: "pakistan_laws",
			Dimension:  768,
		},
		RAG: RAG{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			TopK:         5,
			FetchK:       20,
			Lambda:       0.7,
			MaxQuestion:  5000,
		},
		Ingest: Ingest{
			ChunkSize:    1500,
			ChunkOverlap: 150,
			EmbedBatch:   50,
			StoreBatch:   200,
			FlushEvery:   10,
		},
		Secrets: Secrets{Provider: "env"},
		Log:     Log{Level: "info"},
	}
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.LLM.Provider != "" && c.LLM.Provider != "none" && c.LLM.BaseURL == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but base_url is empty", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("LLM temperature %.2f is outside recommended range [0.0, 2.0]", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens < 0 {
		warnings = append(warnings, fmt.Sprintf("LLM max_tokens %d is negative", c.LLM.MaxTokens))
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize && c.RAG.ChunkSize > 0 {
		warnings = append(warnings, fmt.Sprintf("chunk_overlap %d is not smaller than chunk_size %d", c.RAG.ChunkOverlap, c.RAG.ChunkSize))
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize && c.Ingest.ChunkSize > 0 {
		warnings = append(warnings, fmt.Sprintf("ingest chunk_overlap %d is not smaller than chunk_size %d", c.Ingest.ChunkOverlap, c.Ingest.ChunkSize))
	}
	if c.RAG.FetchK < c.RAG.TopK {
		warnings = append(warnings, fmt.Sprintf("fetch_k %d is smaller than top_k %d", c.RAG.FetchK, c.RAG.TopK))
	}
	if c.RAG.Lambda < 0 || c.RAG.Lambda > 1 {
		warnings = append(warnings, fmt.Sprintf("lambda %.2f is outside [0, 1]", c.RAG.Lambda))
	}

	return warnings
}

// Load reads configuration from file and environment. A missing file is not an
// error; defaults plus PAKLEX_* environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PAKLEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.allowed_origins", def.Server.AllowedOrigins)
	v.SetDefault("llm.provider", def.LLM.Provider)
	v.SetDefault("llm.model", def.LLM.Model)
	v.SetDefault("llm.embed_model", def.LLM.EmbedModel)
	v.SetDefault("llm.base_url", def.LLM.BaseURL)
	v.SetDefault("llm.temperature", def.LLM.Temperature)
	v.SetDefault("llm.max_tokens", def.LLM.MaxTokens)
	v.SetDefault("vector.host", def.Vector.Host)
	v.SetDefault("vector.port", def.Vector.Port)
	v.SetDefault("vector.collection", def.Vector.Collection)
	v.SetDefault("vector.dimension", def.Vector.Dimension)
	v.SetDefault("rag.chunk_size", def.RAG.ChunkSize)
	v.SetDefault("rag.chunk_overlap", def.RAG.ChunkOverlap)
	v.SetDefault("rag.top_k", def.RAG.TopK)
	v.SetDefault("rag.fetch_k", def.RAG.FetchK)
	v.SetDefault("rag.lambda", def.RAG.Lambda)
	v.SetDefault("rag.max_question", def.RAG.MaxQuestion)
	v.SetDefault("ingest.chunk_size", def.Ingest.ChunkSize)
	v.SetDefault("ingest.chunk_overlap", def.Ingest.ChunkOverlap)
	v.SetDefault("ingest.embed_batch", def.Ingest.EmbedBatch)
	v.SetDefault("ingest.store_batch", def.Ingest.StoreBatch)
	v.SetDefault("ingest.flush_every", def.Ingest.FlushEvery)
	v.SetDefault("secrets.provider", def.Secrets.Provider)
	v.SetDefault("log.level", def.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
