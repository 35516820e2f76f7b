package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appcrm "github.com/signaldesk/backend/internal/application/crm"
	"github.com/signaldesk/backend/internal/infrastructure/auth"
	"github.com/signaldesk/backend/internal/infrastructure/config"
	infracrm "github.com/signaldesk/backend/internal/infrastructure/crm"
	"github.com/signaldesk/backend/internal/infrastructure/logger"
	"github.com/signaldesk/backend/internal/infrastructure/persistence"
	"github.com/signaldesk/backend/internal/infrastructure/retry"
	"github.com/signaldesk/backend/internal/interfaces/http/handler"
	"github.com/signaldesk/backend/internal/interfaces/http/middleware"
	"github.com/signaldesk/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting SignalDesk CRM engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with GORM logging routed through zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	// Infrastructure
	jwtService := auth.NewJWTService(cfg.JWT)
	registry := infracrm.NewRegistry(&cfg.CRM)
	retryPolicy := retry.Policy{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
		MaxDelay:   cfg.Retry.MaxDelay,
		Multiplier: cfg.Retry.Multiplier,
	}

	// Repositories
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	signalRepo := persistence.NewGormSignalRepository(db.DB)

	// Application services
	connectionService := appcrm.NewConnectionService(integrationRepo, registry, log).
		WithRetryPolicy(retryPolicy)
	syncService := appcrm.NewSyncService(integrationRepo, syncLogRepo, signalRepo, registry, log).
		WithRetryPolicy(retryPolicy)

	// Gin engine
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsConfig))

	var authLimit gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		apiLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(apiLimiter))

		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		authLimit = middleware.RateLimit(authLimiter)

		log.Info("Rate limiting enabled",
			zap.Int("api_requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("api_window", cfg.HTTP.RateLimitWindow),
			zap.Int("auth_requests", cfg.HTTP.AuthRateLimitRequests),
			zap.Duration("auth_window", cfg.HTTP.AuthRateLimitWindow),
		)
	} else {
		authLimit = func(c *gin.Context) { c.Next() }
	}

	// Routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSystemHandler(db))
	r.Register(handler.NewCRMHandler(connectionService, syncService, jwtService, cfg, authLimit))
	r.Setup()

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
