package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cartsync/config"
	"cartsync/internal/delivery/http/middleware"
	v1 "cartsync/internal/delivery/http/v1"
	"cartsync/internal/domain"
	"cartsync/internal/remote"
	filerepo "cartsync/internal/repository/file"
	"cartsync/internal/repository/memory"
	"cartsync/internal/repository/objectstore"
	"cartsync/internal/repository/postgres"
	"cartsync/internal/usecase"
	"cartsync/pkg/logger"

	"github.com/NYTimes/gziphandler"
)

func main() {
	cfg := config.LoadConfig()

	// Initialize Logger
	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	// Snapshot persistence backend
	var snapshots domain.SnapshotRepository
	switch cfg.PersistenceBackend {
	case "file":
		repo, err := filerepo.NewSnapshotRepository(cfg.SnapshotDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize file snapshot store")
		}
		snapshots = repo
	case "postgres":
		pool, err := postgres.NewPgxPool(context.Background(), cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		repo := postgres.NewSnapshotRepository(pool)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure snapshot schema")
		}
		log.Info().Msg("Successfully connected to PostgreSQL via pgx")
		snapshots = repo
	case "s3":
		repo, err := objectstore.NewSnapshotRepository(
			context.Background(),
			cfg.S3Endpoint,
			cfg.S3Region,
			cfg.S3AccessKeyID,
			cfg.S3AccessKeySecret,
			cfg.S3BucketName,
			cfg.S3Timeout,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize object storage snapshot store")
		}
		snapshots = repo
	default: // "memory", already validated by config
		snapshots = memory.NewSnapshotRepository()
		log.Warn().Msg("Using in-memory snapshot store; carts will not survive a restart")
	}

	// Upstream cart service client
	upstream := remote.NewClient(cfg.UpstreamURL, cfg.UpstreamSyncTimeout)
	log.Info().Str("upstream", cfg.UpstreamURL).Msg("Upstream cart service configured")

	// Store registry: one cart store per session, TTL-cached
	registry := usecase.NewStoreRegistry(upstream, snapshots, cfg.StoreTTL, cfg.StoreCleanupInterval)

	// Set up Router
	mux := http.NewServeMux()

	cartHandler := v1.NewCartHandler(registry, cfg.MaxItemQuantity)

	// Cart (session-keyed via X-Session-Id)
	mux.HandleFunc("GET /api/v1/cart", cartHandler.GetCart)
	mux.HandleFunc("POST /api/v1/cart/sync", cartHandler.Sync)
	mux.HandleFunc("POST /api/v1/cart/items", cartHandler.AddItem)
	mux.HandleFunc("PATCH /api/v1/cart/items/{itemId}", cartHandler.UpdateQuantity)
	mux.HandleFunc("DELETE /api/v1/cart/items/{itemId}", cartHandler.RemoveItem)
	mux.HandleFunc("DELETE /api/v1/cart", cartHandler.ClearCart)

	// Health Check
	healthHandler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	}
	mux.HandleFunc("GET /api/v1/health", healthHandler)
	mux.HandleFunc("GET /health", healthHandler) // Support root health check for Load Balancers

	addr := fmt.Sprintf(":%s", cfg.Port)

	// Initialize Rate Limiter with lifecycle management
	// 50 req/s, burst 100, cleanup every minute, TTL 3 minutes
	rateLimiter := middleware.NewRateLimiter(
		context.Background(),
		50,            // requests per second
		100,           // burst
		time.Minute,   // cleanup period
		3*time.Minute, // visitor TTL
	)

	// Apply CORS (with config injection), Request Logger, Rate Limit, and Gzip
	handler := middleware.NewCORSMiddleware(cfg)(mux)
	handler = middleware.RequestLogger(handler)
	handler = rateLimiter.Middleware()(handler)
	handler = gziphandler.GzipHandler(handler)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Graceful Shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.ServiceStart("cartsync", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	// Stop rate limiter cleanup goroutine before the listener goes away
	rateLimiter.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.ServiceStop("cartsync")
}
