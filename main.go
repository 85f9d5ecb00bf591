package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/classroom-service/internal/auth"
	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/cache"
	"github.com/SAP-F-2025/classroom-service/internal/config"
	"github.com/SAP-F-2025/classroom-service/internal/events"
	"github.com/SAP-F-2025/classroom-service/internal/handlers"
	"github.com/SAP-F-2025/classroom-service/internal/llm"
	"github.com/SAP-F-2025/classroom-service/internal/metrics"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/classroom-service/internal/services"
	"github.com/SAP-F-2025/classroom-service/internal/storage"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
	"github.com/SAP-F-2025/classroom-service/internal/validator"
	"github.com/SAP-F-2025/classroom-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize databases: the regular connection serves requests, the
	// elevated one answers membership lookups
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	adminDB, err := pkg.InitAdminDatabase(cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize admin database: %v", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(models.AllModels()...); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		logger.Info("Database schema migrated")
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache", "error", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		AdminDB:     adminDB,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	repo := repoManager.GetRepository()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.NewMetrics()
	}

	cacheManager := cache.NewCacheManager(redisClient)
	deps := services.Dependencies{
		Repo:      repo,
		DB:        db,
		Logger:    slogLogger,
		Validator: validator.New(),
		Cache:     cacheManager,
		Buckets: services.Buckets{
			ClassResources: cfg.Storage.ClassResourcesBucket,
			Submissions:    cfg.Storage.SubmissionsBucket,
		},
		MaxUploadSize:  cfg.Storage.MaxUploadSizeBytes,
		Sessions:       auth.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL, cacheManager.Session),
		GradeBatchSize: cfg.GradeBatchSize,
	}

	gateOpts := []authz.GateOption{authz.WithLogger(slogLogger)}
	if m != nil {
		gateOpts = append(gateOpts, authz.WithObserver(m))
		deps.Cleanup = m
	}
	deps.Gate = authz.NewGate(repo.Membership(), gateOpts...)

	// Event publisher
	var publishObserver events.PublishObserver
	if m != nil {
		publishObserver = m
	}
	publisher, channel, err := events.NewPublisher(cfg.Events, slogLogger, publishObserver)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}
	deps.Events = publisher
	if channel != nil {
		messages, err := channel.Subscribe(ctx, cfg.Events.Topic)
		if err != nil {
			log.Fatalf("Failed to subscribe to in-process events: %v", err)
		}
		go func() {
			for msg := range messages {
				logger.Debug("Event delivered", "message_id", msg.UUID, "type", msg.Metadata.Get(events.MetadataType))
				msg.Ack()
			}
		}()
	}

	// Object storage
	store, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		logger.Warn("Object storage unavailable", "error", err)
	} else {
		if err := store.EnsureBuckets(ctx); err != nil {
			logger.Warn("Failed to ensure storage buckets", "error", err)
		}
		deps.Storage = store
	}

	// Identity provider
	if verifier, err := auth.NewIDTokenVerifier(ctx, cfg); err != nil {
		logger.Warn("Identity provider unavailable", "provider", cfg.Auth.Provider, "error", err)
	} else {
		deps.Verifier = verifier
	}

	// Language model
	if cfg.LLM.APIKey != "" {
		var callObserver llm.CallObserver
		if m != nil {
			callObserver = m
		}
		deps.Extractor = llm.NewClient(cfg.LLM, callObserver)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(deps)
	if err := serviceManager.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	checks := map[string]handlers.HealthCheck{
		"database": sqlDB.PingContext,
	}
	if redisClient != nil {
		checks["cache"] = cacheManager.HealthCheck
	}
	if deps.Storage != nil {
		checks["storage"] = store.HealthCheck
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, cfg.Session, checks, m, logger)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, m, cfg.CORSAllowedOrigins)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Closes the event publisher
	if err := serviceManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	// Closes both database connections and redis
	if err := repoManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to close connections", "error", err)
	}

	logger.Info("Server exited")
}
