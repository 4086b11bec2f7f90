package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appaudit "github.com/kitchenledger/backend/internal/application/audit"
	appcatalog "github.com/kitchenledger/backend/internal/application/catalog"
	appevent "github.com/kitchenledger/backend/internal/application/event"
	appinv "github.com/kitchenledger/backend/internal/application/inventory"
	"github.com/kitchenledger/backend/internal/domain/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/kitchenledger/backend/internal/infrastructure/cache"
	"github.com/kitchenledger/backend/internal/infrastructure/config"
	"github.com/kitchenledger/backend/internal/infrastructure/event"
	"github.com/kitchenledger/backend/internal/infrastructure/lock"
	"github.com/kitchenledger/backend/internal/infrastructure/logger"
	"github.com/kitchenledger/backend/internal/infrastructure/migration"
	"github.com/kitchenledger/backend/internal/infrastructure/persistence"
	"github.com/kitchenledger/backend/internal/infrastructure/telemetry"
	"github.com/kitchenledger/backend/internal/interfaces/http/handler"
	"github.com/kitchenledger/backend/internal/interfaces/http/middleware"
	"github.com/kitchenledger/backend/internal/interfaces/http/router"
)

//	@title			Kitchen Ledger API
//	@version		1.0
//	@description	Stock ledger for restaurant kitchens: documents, batch balances, FEFO write-offs and recipe costing.

//	@host		localhost:8080
//	@BasePath	/api/v1

const serviceVersion = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.NewForEnvironment(cfg.App.Env, &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	// Log export: entries keep going to the configured output and are also
	// shipped to the collector when enabled
	loggerProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer func() {
		if err := loggerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	log = telemetry.BridgeLogger(log, loggerProvider, cfg.App.Name, cfg.Log.Level)

	log.Info("Starting Kitchen Ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	policy, err := inventory.ParseNegativeStockPolicy(cfg.Ledger.NegativeStockPolicy)
	if err != nil {
		log.Fatal("Invalid negative stock policy", zap.Error(err))
	}

	// Tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		ServiceVersion:    serviceVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Continuous profiling
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:              cfg.Telemetry.ProfilingEnabled,
		ServerAddress:        cfg.Telemetry.ProfilingServerAddress,
		ApplicationName:      cfg.App.Name,
		MutexProfileFraction: cfg.Telemetry.ProfilingMutexFraction,
		BlockProfileRate:     cfg.Telemetry.ProfilingBlockRate,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Metrics
	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Schema
	if cfg.Database.AutoMigrate {
		if err := runMigrations(&cfg.Database, log); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	// Database with zap-backed GORM logger and optional query spans
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	}
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))),
		persistence.WithTracing(dbTracing, log),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Redis backs the cross-process stock lock and handler deduplication
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	var idempotency shared.IdempotencyStore
	stockLocker := lock.Chain{lock.NewKeyedLocker()}
	if redisClient != nil {
		idempotency = cache.NewIdempotencyStore(redisClient, log)
		stockLocker = append(stockLocker, lock.NewRedisLocker(redisClient, lock.RedisConfig{
			TTL:           cfg.Ledger.LockTTL,
			RetryInterval: cfg.Ledger.LockRetryInterval,
			WaitTimeout:   cfg.Ledger.LockWaitTimeout,
		}, log))
	} else {
		idempotency = cache.NewIdempotencyStore(nil, log)
	}

	// Recipes are read on every sale write-off; cache them by dish
	var recipeCacheClient redis.UniversalClient
	if redisClient != nil {
		recipeCacheClient = redisClient
	}
	recipeCacheCtx, stopRecipeCache := context.WithCancel(context.Background())
	recipeCache := cache.NewRecipeCache(recipeCacheCtx, recipeCacheClient, cache.RecipeCacheConfig{
		LocalTTL:  cfg.Ledger.RecipeCacheTTL,
		SharedTTL: cfg.Ledger.RecipeCacheSharedTTL,
		KeyPrefix: cache.DefaultRecipeCacheConfig().KeyPrefix,
		Channel:   cache.DefaultRecipeCacheConfig().Channel,
	}, log)
	defer func() {
		stopRecipeCache()
		_ = recipeCache.Close()
	}()

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	recipeRepo := cache.NewCachedRecipeRepository(persistence.NewGormRecipeRepository(db.DB), recipeCache, log)
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	balanceStore := persistence.NewGormStockBalanceStore(db.DB, policy)
	auditRepo := persistence.NewGormAuditRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Events are written to the outbox in the posting transaction
	serializer := event.NewLedgerSerializer()
	outboxPublisher := event.NewOutboxPublisher(serializer, cfg.Event.MaxRetries)
	scope := persistence.NewGormTransactionScope(db.DB, policy, outboxPublisher)

	// Application services
	numbers := appinv.NewDocumentNumberer()
	auditService := appaudit.NewAuditService(auditRepo, cfg.Ledger.AuditRetention, log)
	ledgerMetrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:            meterProvider.Meter(telemetry.TracerName),
		Logger:           log,
		LowStockProvider: productRepo,
	})
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}
	if meterProvider.IsEnabled() {
		ledgerMetrics.StartPeriodicCollection(context.Background(), cfg.Telemetry.MetricsCollectInterval)
		defer ledgerMetrics.Stop()
	}

	postingService := appinv.NewPostingService(scope, documentRepo, stockLocker, nil, numbers, log)
	postingService.SetAuditRecorder(auditService)
	postingService.SetLedgerMetrics(ledgerMetrics)
	saleService := appinv.NewSaleWriteoffService(postingService, recipeRepo, log)
	documentService := appinv.NewDocumentService(documentRepo, numbers, log)
	stockQueryService := appinv.NewStockQueryService(balanceStore)
	catalogService := appcatalog.NewCatalogService(productRepo, recipeRepo, warehouseRepo, nil, log)
	catalogService.SetAuditRecorder(auditService)
	catalogService.SetStockSummer(balanceStore)
	outboxService := appevent.NewOutboxService(outboxRepo, log)

	// Event bus: the posting service notifies it after commit and the
	// outbox processor replays the same events, so handlers are idempotent
	eventBus := event.NewInMemoryEventBus(log)
	lowStock := event.NewIdempotentHandler("low_stock", appinv.NewLowStockHandler(log).WithMetrics(ledgerMetrics), idempotency, log)
	eventBus.Subscribe(lowStock)
	log.Info("Event handlers registered", zap.Strings("low_stock_events", lowStock.EventTypes()))

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	postingService.SetEventPublisher(eventBus)

	// Outbox delivery targets the bus and, when enabled, the Kafka topic
	delivery := event.FanOut{eventBus}
	if cfg.Kafka.Enabled {
		writer := event.NewKafkaWriter(event.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		defer func() {
			if err := writer.Close(); err != nil {
				log.Error("Error closing Kafka writer", zap.Error(err))
			}
		}()
		delivery = append(delivery, event.NewKafkaForwarder(writer, serializer, cfg.Kafka.WriteTimeout, log))
		log.Info("Kafka forwarding enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	if cfg.Event.ProcessorEnabled {
		processorConfig := event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
		}
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, delivery, serializer, processorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := outboxProcessor.Stop(ctx); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - Server span per request
	// 5. UserIdentity - Acting user from X-User-ID
	// 6. Security, CORS, body limit, timeout, rate limit
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.App.Name,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.UserIdentity())
	if meterProvider.IsEnabled() {
		engine.Use(middleware.HTTPMetrics(meterProvider.Meter(telemetry.TracerName)))
	}
	if profiler.IsEnabled() {
		engine.Use(middleware.Profiling())
	}
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(cfg.HTTP.CORSOrigins))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes))
	engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimit > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimit),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.RegisterLedgerRoutes(r, router.Handlers{
		Documents: handler.NewDocumentHandler(documentService, postingService),
		Sales:     handler.NewSaleHandler(saleService),
		Stock:     handler.NewStockHandler(stockQueryService, postingService),
		Catalog:   handler.NewCatalogHandler(catalogService),
		Audit:     handler.NewAuditHandler(auditService),
		Outbox:    handler.NewOutboxHandler(outboxService),
		System:    handler.NewSystemHandler(cfg.App.Name, serviceVersion, db, postingService),
	})
	r.Setup()
	log.Debug("Routes registered", zap.Int("count", len(r.Routes())))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// runMigrations applies the embedded schema over a dedicated connection;
// closing the migrator closes the connection it was given
func runMigrations(cfg *config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}

	migrator, err := migration.New(sqlDB, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			log.Warn("Error closing migrator", zap.Error(err))
		}
	}()

	return migrator.Up()
}
