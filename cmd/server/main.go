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
	"go.uber.org/zap"

	appaudit "github.com/bplo/backend/internal/application/audit"
	appregistry "github.com/bplo/backend/internal/application/registry"
	"github.com/bplo/backend/internal/infrastructure/auth"
	"github.com/bplo/backend/internal/infrastructure/cache"
	"github.com/bplo/backend/internal/infrastructure/config"
	"github.com/bplo/backend/internal/infrastructure/logger"
	"github.com/bplo/backend/internal/infrastructure/persistence"
	"github.com/bplo/backend/internal/infrastructure/telemetry"
	"github.com/bplo/backend/internal/interfaces/http/handler"
	"github.com/bplo/backend/internal/interfaces/http/middleware"
	"github.com/bplo/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting BPLO registry backend",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logger
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(200*time.Millisecond),
		logger.WithIgnoreRecordNotFoundError(true),
	)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	// OpenTelemetry tracer provider
	ctx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	// Database query tracing
	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: 200 * time.Millisecond,
			DBSystem:        "postgresql",
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	// Repositories
	recordStore := persistence.NewGormRecordStore(db.DB)
	auditStore := persistence.NewGormAuditStore(db.DB)

	// Application services
	auditWriter := appaudit.NewWriter(auditStore, log,
		appaudit.WithAppendTimeout(cfg.Audit.WriteTimeout),
	)
	synchronizer := appregistry.NewSynchronizer(recordStore, log,
		appregistry.WithPreserveExtensions(cfg.Cascade.PreserveExtensions),
	)

	var serviceOpts []appregistry.RecordServiceOption
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		recordCache := cache.NewRedisRecordCache(redisClient, cfg.Redis.CacheTTL, log)
		defer func() {
			if err := recordCache.Close(); err != nil {
				log.Error("Failed to close Redis client", zap.Error(err))
			}
		}()
		serviceOpts = append(serviceOpts, appregistry.WithResponseCache(recordCache))
		log.Info("Record response cache enabled",
			zap.String("host", cfg.Redis.Host),
			zap.Duration("ttl", cfg.Redis.CacheTTL),
		)
	}

	recordService := appregistry.NewRecordService(recordStore, auditWriter, synchronizer, log, serviceOpts...)
	reconciler := appregistry.NewReconciler(recordStore, synchronizer, log)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT)

	// Handlers
	recordHandler := handler.NewRecordHandler(recordService)
	auditHandler := handler.NewAuditHandler(auditWriter)
	adminHandler := handler.NewAdminHandler(reconciler)
	systemHandler := handler.NewSystemHandler()

	// HTTP engine and middleware stack
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(1 << 20))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanEnricher())
		engine.Use(middleware.SpanErrorMarker())
	}

	// Health endpoint stays outside authentication
	engine.GET("/health", healthHandler(db))

	// JWT authentication for the API surface
	if cfg.JWT.Secret != "" {
		jwtConfig := middleware.DefaultJWTConfig(jwtService)
		jwtConfig.Logger = log
		jwtConfig.SkipPaths = append(jwtConfig.SkipPaths, "/api/v1/system/ping")
		engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))
	} else {
		log.Warn("JWT secret not configured, API authentication disabled")
	}

	// Routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	recordGroup := router.NewDomainGroup("records", "/records")
	recordGroup.POST("", recordHandler.Create)
	recordGroup.GET("", recordHandler.List)
	recordGroup.GET("/:accountNo", recordHandler.Get)
	recordGroup.PUT("/:accountNo", recordHandler.Update)
	recordGroup.DELETE("/:accountNo", recordHandler.Delete)

	yearGroup := router.NewDomainGroup("years", "/years/:year/records")
	yearGroup.GET("", recordHandler.ListForYear)
	yearGroup.GET("/:accountNo", recordHandler.GetForYear)
	yearGroup.POST("", recordHandler.RejectDerivedMutation)
	yearGroup.PUT("/:accountNo", recordHandler.RejectDerivedMutation)
	yearGroup.PATCH("/:accountNo", recordHandler.RejectDerivedMutation)
	yearGroup.DELETE("/:accountNo", recordHandler.RejectDerivedMutation)

	auditGroup := router.NewDomainGroup("audit", "/audit-logs")
	auditGroup.GET("", auditHandler.List)

	adminGroup := router.NewDomainGroup("admin", "/admin")
	adminGroup.POST("/reconcile", adminHandler.Reconcile)

	systemGroup := router.NewDomainGroup("system", "/system")
	systemGroup.GET("/info", systemHandler.GetSystemInfo)
	systemGroup.GET("/ping", systemHandler.Ping)

	r.Register(recordGroup).
		Register(yearGroup).
		Register(auditGroup).
		Register(adminGroup).
		Register(systemGroup)
	r.Setup()

	// HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Flush pending audit entries before the process exits
	auditWriter.Wait()

	log.Info("Server exited")
}

// healthHandler reports liveness plus database connectivity.
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		statusText := "ok"
		dbStatus := "up"
		if err := db.Ping(); err != nil {
			status = http.StatusServiceUnavailable
			statusText = "degraded"
			dbStatus = "down"
		}
		c.JSON(status, gin.H{
			"status":   statusText,
			"database": dbStatus,
			"time":     time.Now().Format(time.RFC3339),
		})
	}
}
