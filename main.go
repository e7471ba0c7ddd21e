package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/fvorders/fvorders-api/config"
	"github.com/fvorders/fvorders-api/logging"
	"github.com/fvorders/fvorders-api/models"
	"github.com/fvorders/fvorders-api/routes"
	"github.com/fvorders/fvorders-api/services"
)

const (
	producerName    = "fvorders-api"
	eventBuffer     = 256
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("Starting FV Orders API server...", "env", cfg.GoEnv)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.ConnectDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := config.CloseDatabase(db); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}
	logger.Info("Database migration completed successfully")

	events := newEventPublisher(cfg, logger)
	defer func() {
		if err := events.Close(); err != nil {
			logger.Error("failed to close event publisher", "error", err)
		}
	}()

	var idempotency services.IdempotencyStore
	if cfg.IdempotencyEnabled() {
		client := services.NewRedisClient(cfg.RedisAddr)
		defer closeRedis(client, logger)
		idempotency = services.NewRedisIdempotencyStore(client, services.IdempotencyTTL)
		logger.Info("idempotency keys enabled", "redis_addr", cfg.RedisAddr)
	}

	var images services.ImageService
	if cfg.ImagesEnabled() {
		s3Service, err := services.NewS3Service(ctx, cfg)
		if err != nil {
			return err
		}
		images = services.NewS3ImageService(s3Service)
		logger.Info("product images enabled", "bucket", cfg.AWSS3Bucket)
	}

	router, err := routes.SetupRouter(routes.Dependencies{
		Config:   cfg,
		DB:       db,
		Logger:   logger,
		Orders:   services.NewOrderService(db, events, idempotency),
		Products: services.NewProductService(db, events, images),
		Admins:   services.NewAdminAuthenticator(cfg.AdminEmail, cfg.AdminPassword),
		Tokens:   services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server is running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newEventPublisher(cfg *config.Config, logger *slog.Logger) services.EventPublisher {
	if !cfg.EventsEnabled() {
		return services.NoopPublisher{}
	}
	logger.Info("domain events enabled", "brokers", cfg.KafkaBrokers)
	return services.NewKafkaPublisher(cfg.KafkaBrokers, producerName, eventBuffer, logger)
}

func closeRedis(client *redis.Client, logger *slog.Logger) {
	if err := client.Close(); err != nil {
		logger.Error("failed to close redis client", "error", err)
	}
}
