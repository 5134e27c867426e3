package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/tenant_pos/internal/cache"
	"github.com/GTDGit/tenant_pos/internal/config"
	"github.com/GTDGit/tenant_pos/internal/database"
	"github.com/GTDGit/tenant_pos/internal/handler"
	"github.com/GTDGit/tenant_pos/internal/middleware"
	"github.com/GTDGit/tenant_pos/internal/repository"
	"github.com/GTDGit/tenant_pos/internal/service"
	"github.com/GTDGit/tenant_pos/internal/sse"
	"github.com/GTDGit/tenant_pos/internal/worker"
)

const version = "1.0.0"

// main is the application entrypoint for the tenant POS API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("starting tenant pos api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := map[string]handler.HealthCheck{}

	// 3. Select store
	var stores repository.Stores
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		var db *sqlx.DB
		db, err = database.Connect(ctx, &cfg.DB)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.Migrate(db.DB, cfg.DB.MigrationsPath); err != nil {
			log.Error().Err(err).Msg("migration failed")
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			os.Exit(1)
		}
		log.Info().Msg("migrations completed successfully")

		stores = repository.NewPostgresStores(db)
		checks["database"] = db.PingContext
	default:
		stores = repository.NewMemoryStore().Stores()
		log.Warn().Msg("using in-memory store; data is lost on restart")
	}

	// 3a. Connect to Redis (optional)
	var guard service.IdempotencyGuard
	if cfg.Redis.Enabled() {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Error().Err(err).Msg("redis connection failed")
			fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected successfully")

		guard = cache.NewIdempotencyCache(redisClient, cfg.Orders.IdempotencyTTL)
		checks["redis"] = redisClient.Ping
	} else {
		log.Info().Msg("REDIS_HOST not set; idempotency relies on the store only")
	}

	// 4. Initialize services
	hub := sse.NewHub()
	notifier := sse.NewHubNotifier(hub)

	schemaSvc := service.NewSchemaService(stores.Fields, notifier)
	catalogSvc := service.NewCatalogService(stores.Products, schemaSvc)
	orderSvc := service.NewOrderService(stores.Orders, stores.Reconciliation, guard, notifier)

	// 5. Initialize handlers
	handlers := &handler.Handlers{
		Health:  handler.NewHealthHandler(version, checks),
		Schema:  handler.NewSchemaHandler(schemaSvc),
		Product: handler.NewProductHandler(catalogSvc, schemaSvc),
		Order:   handler.NewOrderHandler(orderSvc),
		SSE:     handler.NewSSEHandler(hub),
	}

	// 6. Initialize middleware
	rateLimiter := middleware.NewInvalidAuthRateLimiter(5, time.Minute)
	defer rateLimiter.Close()
	tenantMw := middleware.NewTenantMiddleware(cfg.JWTSecret, rateLimiter)

	// 7. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))
	router.Use(middleware.LoggingMiddleware())
	handler.SetupRoutes(router, handlers, tenantMw)

	// 8. Start workers
	go worker.NewReconciliationWorker(orderSvc, cfg.Worker.ReconcileInterval, 100).Start(ctx)

	// 9. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 10. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 11. Cancel context to stop workers
	cancel()

	// 12. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
