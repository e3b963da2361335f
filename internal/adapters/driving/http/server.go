package http

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	authService     driving.AuthService
	docService      driving.DocumentService
	indexingService driving.IndexingService
	tagService      driving.TagService
	autoTagService  driving.AutoTagService

	// Infrastructure
	taskQueue   driven.TaskQueue // optional
	db          Pinger           // document store health check (optional)
	redisClient Pinger           // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	Version     string
	CORSOrigins []string
	Logger      *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService,
	docService driving.DocumentService,
	indexingService driving.IndexingService,
	tagService driving.TagService,
	autoTagService driving.AutoTagService,
	taskQueue driven.TaskQueue, // can be nil
	db Pinger, // can be nil
	redisClient Pinger, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger,
		authService:     authService,
		docService:      docService,
		indexingService: indexingService,
		tagService:      tagService,
		autoTagService:  autoTagService,
		taskQueue:       taskQueue,
		db:              db,
		redisClient:     redisClient,
	}

	var handler http.Handler = s.router
	if len(cfg.CORSOrigins) > 0 {
		handler = NewCORSMiddleware(cfg.CORSOrigins).Handler(handler)
	}
	handler = NewLoggingMiddleware(logger).Handler(handler)
	handler = NewRecoveryMiddleware(logger).Handler(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// Handler returns the fully wrapped handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)
	protected := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}

	// Health and metrics endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", promhttp.Handler())
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Chunking preview
	s.router.Handle("POST /api/v1/chunks/preview", protected(s.handlePreviewChunks))

	// Document endpoints
	s.router.Handle("GET /api/v1/documents", protected(s.handleListDocuments))
	s.router.Handle("PUT /api/v1/documents/{id}", protected(s.handleSaveDocument))
	s.router.Handle("GET /api/v1/documents/{id}", protected(s.handleGetDocument))
	s.router.Handle("DELETE /api/v1/documents/{id}", protected(s.handleDeleteDocument))
	s.router.Handle("GET /api/v1/documents/{id}/chunks", protected(s.handleGetDocumentChunks))
	s.router.Handle("POST /api/v1/documents/{id}/index", protected(s.handleIndexDocument))
	s.router.Handle("POST /api/v1/documents/{id}/autotag", protected(s.handleAutoTagDocument))

	// Tag endpoints
	s.router.Handle("GET /api/v1/tags", protected(s.handleListTags))
	s.router.Handle("POST /api/v1/tags", protected(s.handleCreateTag))
	s.router.Handle("POST /api/v1/tags/refresh", protected(s.handleRefreshTags))
	s.router.Handle("GET /api/v1/tags/{id}", protected(s.handleGetTag))
	s.router.Handle("PATCH /api/v1/tags/{id}", protected(s.handleUpdateTag))
	s.router.Handle("DELETE /api/v1/tags/{id}", protected(s.handleDeleteTag))

	// Matcher debugging path
	s.router.Handle("POST /api/v1/match", protected(s.handleMatch))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
