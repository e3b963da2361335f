package main

// @title           Sercha Notes API
// @version         1.0
// @description     Structure-preserving chunking and auto-tagging for rich-text notes.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-notes/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/custodia-labs/sercha-notes/docs"
	"github.com/custodia-labs/sercha-notes/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-notes/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-notes/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-notes/internal/adapters/driven/postgres"
	redisqueue "github.com/custodia-labs/sercha-notes/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/sercha-notes/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-notes/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-notes/internal/config"
	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-notes/internal/core/services"
	"github.com/custodia-labs/sercha-notes/internal/parsers"
	"github.com/custodia-labs/sercha-notes/internal/runtime"
	"github.com/custodia-labs/sercha-notes/internal/worker"
)

var version = "dev"

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Command line arg overrides RUN_MODE
	if len(os.Args) > 1 {
		cfg.Mode = os.Args[1]
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid mode: %v", err)
		}
	}

	log.Printf("sercha-notes %s starting in %s mode", version, cfg.Mode)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	logger := slog.Default()

	// ===== Stores (PostgreSQL if configured, otherwise in-memory) =====
	var (
		documentStore driven.DocumentStore
		chunkStore    driven.ChunkStore
		tagStore      driven.TagStore
		dbPinger      http.Pinger
		db            *postgres.DB
	)
	if cfg.Database.URL != "" {
		log.Println("Connecting to PostgreSQL...")
		db, err = postgres.Connect(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		log.Println("PostgreSQL connected and schema initialized")

		documentStore = postgres.NewDocumentStore(db)
		chunkStore = postgres.NewChunkStore(db)
		tagStore = postgres.NewTagStore(db)
		dbPinger = db
	} else {
		documentStore = memory.NewDocumentStore()
		chunkStore = memory.NewChunkStore()
		if cfg.Database.TagIndexPath != "" {
			persistent, err := memory.NewPersistentTagStore(cfg.Database.TagIndexPath)
			if err != nil {
				log.Fatalf("Failed to open tag index: %v", err)
			}
			tagStore = persistent
		} else {
			tagStore = memory.NewTagStore()
		}
		log.Println("Using in-memory stores (DATABASE_URL not set)")
	}

	// ===== Redis (optional): task queue, lock, embedding cache =====
	var (
		redisClient *redis.Client
		redisPinger http.Pinger
		taskQueue   driven.TaskQueue
		lock        driven.DistributedLock
		cache       *redisadapter.EmbeddingCache
	)
	if cfg.Redis.URL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")

		queue, err := redisqueue.NewQueue(ctx, redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			log.Fatalf("Failed to create task queue: %v", err)
		}
		taskQueue = queue
		lock = redisadapter.NewLock(redisClient)
		cache = redisadapter.NewEmbeddingCache(redisClient)
		redisPinger = cache
		log.Println("Using Redis task queue, lock and embedding cache")
	} else if db != nil {
		lock = postgres.NewAdvisoryLock(db)
		log.Println("Using PostgreSQL advisory lock; saves are indexed inline")
	} else {
		log.Println("No queue configured; saves are indexed inline")
	}

	// ===== Runtime services =====
	runtimeConfig := domain.NewRuntimeConfig(cfg.StorageBackend(), cfg.QueueBackend())
	runtimeServices := runtime.NewServices(runtimeConfig)
	defer runtimeServices.Close()

	if err := runtimeServices.SetChunkingSettings(cfg.ChunkingSettings()); err != nil {
		log.Fatalf("Invalid chunking settings: %v", err)
	}
	if err := runtimeServices.SetAutoTagSettings(cfg.AutoTagSettings()); err != nil {
		log.Fatalf("Invalid auto-tag settings: %v", err)
	}
	if cache != nil {
		runtimeServices.SetEmbeddingCache(cache, cfg.Redis.CacheTTL)
	}

	aiFactory := ai.NewFactory(logger)
	embedder, err := aiFactory.CreateEmbeddingService(cfg.EmbeddingSettings())
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}
	if embedder != nil {
		if err := runtimeServices.ValidateAndSetEmbedding(ctx, embedder); err != nil {
			// Chunks are still stored without vectors; tagging reports unavailable.
			log.Printf("Warning: embedding health check failed: %v (auto-tagging disabled until restart)", err)
		}
	}

	log.Printf("Runtime config: storage=%s, queue=%s, embedding=%t",
		runtimeConfig.StorageBackend,
		cfg.QueueBackend(),
		runtimeConfig.EmbeddingAvailable())

	// ===== Services =====
	registry := parsers.DefaultRegistry()
	authService := services.NewAuthService(auth.NewAdapter(cfg.Auth.JWTSecret, cfg.Auth.Issuer), cfg.Auth.TokenTTL)
	indexingService := services.NewIndexingService(services.IndexingServiceConfig{
		DocumentStore: documentStore,
		ChunkStore:    chunkStore,
		Parsers:       registry,
		Lock:          lock,
		Services:      runtimeServices,
		LockTTL:       cfg.Worker.LockTTL,
		Logger:        logger,
	})
	documentService := services.NewDocumentService(services.DocumentServiceConfig{
		DocumentStore: documentStore,
		ChunkStore:    chunkStore,
		TaskQueue:     taskQueue,
		Indexer:       indexingService,
		Logger:        logger,
	})
	tagService := services.NewTagService(tagStore, runtimeServices, logger)
	autoTagService := services.NewAutoTagService(services.AutoTagServiceConfig{
		DocumentStore: documentStore,
		TagStore:      tagStore,
		Parsers:       registry,
		Services:      runtimeServices,
		Logger:        logger,
	})

	var sweeper *services.Sweeper
	if cfg.Worker.SweepEnabled && taskQueue != nil {
		sweeper = services.NewSweeper(services.SweeperConfig{
			DocumentStore: documentStore,
			TaskQueue:     taskQueue,
			Lock:          lock,
			Logger:        logger,
			Interval:      cfg.Worker.SweepInterval,
			Grace:         cfg.Worker.SweepGrace,
		})
		log.Printf("Sweeper enabled (interval=%s)", cfg.Worker.SweepInterval)
	}

	api := func() {
		runAPI(cfg, authService, documentService, indexingService, tagService, autoTagService, taskQueue, dbPinger, redisPinger)
	}

	switch cfg.Mode {
	case config.ModeAPI:
		api()

	case config.ModeWorker:
		runWorkerMode(ctx, cfg, taskQueue, indexingService, autoTagService, runtimeServices, sweeper)

	case config.ModeAll:
		if taskQueue != nil {
			go runWorkerMode(ctx, cfg, taskQueue, indexingService, autoTagService, runtimeServices, sweeper)
		}
		api()
	}
}

func runAPI(
	cfg *config.Config,
	authService driving.AuthService,
	documentService driving.DocumentService,
	indexingService driving.IndexingService,
	tagService driving.TagService,
	autoTagService driving.AutoTagService,
	taskQueue driven.TaskQueue,
	db http.Pinger,
	redisPinger http.Pinger,
) {
	server := http.NewServer(
		http.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			Version:     version,
			CORSOrigins: cfg.Server.CORSOrigins,
			Logger:      slog.Default(),
		},
		authService,
		documentService,
		indexingService,
		tagService,
		autoTagService,
		taskQueue,
		db,
		redisPinger,
	)

	log.Printf("API server starting on %s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// runWorkerMode starts the worker and sweeper.
// It processes index and auto-tag tasks until the context is cancelled.
func runWorkerMode(
	ctx context.Context,
	cfg *config.Config,
	taskQueue driven.TaskQueue,
	indexer driving.IndexingService,
	autoTagger driving.AutoTagService,
	settings *runtime.Services,
	sweeper *services.Sweeper,
) {
	log.Println("Starting worker mode...")

	w := worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      taskQueue,
		Indexer:        indexer,
		AutoTagger:     autoTagger,
		Settings:       settings,
		Sweeper:        sweeper,
		Logger:         slog.Default(),
		Concurrency:    cfg.Worker.Concurrency,
		DequeueTimeout: cfg.Worker.DequeueTimeout,
	})

	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	log.Println("Worker started, processing tasks...")
	log.Println("Worker handles:")
	log.Println("  - index_document: Parse, chunk and embed a saved document")
	log.Println("  - autotag_document: Resolve the best tag for an indexed document")

	<-ctx.Done()

	log.Println("Stopping worker...")
	w.Stop()
	log.Println("Worker stopped")
}
