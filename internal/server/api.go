// Package server exposes the law-query and ingestion API over HTTP and
// manages graceful shutdown of the service's components.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/paklexai/paklex/internal/composer"
	"github.com/paklexai/paklex/internal/embed"
	"github.com/paklexai/paklex/internal/ingest"
	"github.com/paklexai/paklex/internal/llm"
	"github.com/paklexai/paklex/internal/vector"
)

const tracerName = "github.com/paklexai/paklex/internal/server"

// maxUploadBytes bounds a multipart ingest request.
const maxUploadBytes = 32 << 20

// Ingestor accepts a single uploaded document.
type Ingestor interface {
	IngestDocument(ctx context.Context, up ingest.Upload) (int, error)
}

// Retriever finds relevant chunks for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]vector.SearchResult, error)
}

// Composer produces the final answer from retrieved chunks.
type Composer interface {
	Compose(ctx context.Context, question string, results []vector.SearchResult) (*composer.Answer, error)
}

// Counter reports the size of the vector collection.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Config holds API server settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	Collection     string
	MaxQuestion    int
}

// Server is the API server. Dependencies are narrow interfaces so tests can
// swap in fakes without a Qdrant or model backend.
type Server struct {
	config    Config
	ingestor  Ingestor
	retriever Retriever
	composer  Composer
	counter   Counter
	checks    map[string]HealthChecker
	server    *http.Server
}

// NewServer wires the routes and middleware.
func NewServer(config Config, ingestor Ingestor, retriever Retriever, comp Composer, counter Counter) *Server {
	if config.MaxQuestion <= 0 {
		config.MaxQuestion = 5000
	}
	s := &Server{
		config:    config,
		ingestor:  ingestor,
		retriever: retriever,
		composer:  comp,
		counter:   counter,
		checks:    make(map[string]HealthChecker),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/ingest", s.handleIngest)
	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/api/collection/stats", s.handleStats)
	mux.HandleFunc("/health", s.handleHealth)

	handler := corsMiddleware(config.AllowedOrigins, loggingMiddleware(mux))

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute, // model completions are slow
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// RegisterCheck adds a component health check reported by /health.
func (s *Server) RegisterCheck(name string, checker HealthChecker) {
	s.checks[name] = checker
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving and blocks until shutdown.
func (s *Server) Start() error {
	slog.Info("starting API server", "addr", s.config.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	slog.Info("stopping API server")
	return s.server.Shutdown(ctx)
}

type queryRequest struct {
	Question string `json:"question"`
	// Accepted for API compatibility; responses are always returned whole.
	Stream bool `json:"stream"`
}

// handleQuery handles POST /api/query.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		respondError(w, http.StatusBadRequest, "question must not be empty")
		return
	}
	if len(question) > s.config.MaxQuestion {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("question exceeds %d characters", s.config.MaxQuestion))
		return
	}

	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "api.query")
	defer span.End()
	span.SetAttributes(attribute.Int("question_length", len(question)))

	results, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		s.respondPipelineError(w, "retrieval failed", err)
		return
	}

	answer, err := s.composer.Compose(ctx, question, results)
	if err != nil {
		s.respondPipelineError(w, "answer generation failed", err)
		return
	}

	respondJSON(w, http.StatusOK, answer)
}

// handleIngest handles POST /api/ingest (multipart form).
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	up := ingest.Upload{
		FileName:  header.Filename,
		LawName:   r.FormValue("law_name"),
		LawNumber: r.FormValue("law_number"),
		Year:      r.FormValue("year"),
		Data:      data,
	}

	count, err := s.ingestor.IngestDocument(r.Context(), up)
	if err != nil {
		if errors.Is(err, ingest.ErrValidation) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondPipelineError(w, "ingestion failed", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"chunks_ingested": count,
		"law_name":        up.LawName,
		"law_number":      up.LawNumber,
	})
}

// handleStats handles GET /api/collection/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	count, err := s.counter.Count(r.Context())
	if err != nil {
		s.respondPipelineError(w, "collection stats failed", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"collection":      s.config.Collection,
		"total_documents": count,
	})
}

// handleHealth handles GET /health, running the registered component checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := HealthStatusHealthy
	checks := make([]HealthCheck, 0, len(s.checks))
	for name, checker := range s.checks {
		check := checker(ctx)
		check.Name = name
		checks = append(checks, check)
		if check.Status == HealthStatusUnhealthy {
			status = HealthStatusUnhealthy
		} else if check.Status == HealthStatusDegraded && status == HealthStatusHealthy {
			status = HealthStatusDegraded
		}
	}

	code := http.StatusOK
	if status == HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]any{
		"status":  status,
		"service": "paklex-api",
		"checks":  checks,
	})
}

// respondPipelineError maps component failures to a 500 with a readable
// message, keeping the upstream detail in the log rather than the response.
func (s *Server) respondPipelineError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	switch {
	case errors.Is(err, embed.ErrService):
		msg = msg + ": embedding service unavailable"
	case errors.Is(err, vector.ErrStore):
		msg = msg + ": vector store unavailable"
	case errors.Is(err, llm.ErrProvider):
		msg = msg + ": language model unavailable"
	}
	respondError(w, http.StatusInternalServerError, msg)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

// corsMiddleware allows the configured origins; an empty list allows any.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if len(origins) == 0 {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				for _, allowed := range origins {
					if allowed == origin || allowed == "*" {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						break
					}
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
