package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"product-catalog/internal/auth"
	"product-catalog/internal/config"
	"product-catalog/internal/database"
	"product-catalog/internal/domain"
	"product-catalog/internal/events"
	"product-catalog/internal/logger"
	"product-catalog/internal/media"
	"product-catalog/internal/metrics"
	"product-catalog/internal/repository"
	"product-catalog/internal/server"
	"product-catalog/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	done <- true
}

func newPublisher(cfg config.KafkaConfig, log *zap.Logger) events.Publisher {
	if !cfg.Enabled() {
		log.Info("No Kafka brokers configured, catalog events are disabled")
		return events.NopPublisher{}
	}

	publisher, err := events.NewKafkaPublisher(cfg.Brokers, cfg.Topic, log)
	if err != nil {
		log.Fatal("Failed to create Kafka publisher", zap.Error(err))
	}
	log.Info("Publishing catalog events", zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.Topic))
	return publisher
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting product catalog API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx := context.Background()

	dbService, err := database.New(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	log.Info("Database health check", zap.Any("health", dbService.Health(ctx)))

	if err := database.RunMigrations(dbService.DB(), log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully")

	if cfg.Server.MigrateOnly {
		if err := database.GetMigrationStatus(dbService.DB()); err != nil {
			log.Error("Failed to read migration status", zap.Error(err))
		}
		dbService.Close()
		return
	}

	if cfg.JWT.Secret == "" {
		// tokens issued with this secret do not survive a restart
		cfg.JWT.Secret = uuid.NewString()
		log.Warn("JWT_SECRET is not set, using a random secret")
	}
	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessExpiry)*time.Minute)
	hasher := auth.NewPasswordHasher(auth.BcryptCost)

	store := repository.NewStore(dbService.Gorm())

	if cfg.Admin.Enabled() {
		users := service.NewUserService(store.Users(), hasher, tokens, cfg.Database.OperationTimeout)
		admin, err := users.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			log.Fatal("Failed to create admin account", zap.Error(err))
		}
		if admin.Role != domain.RoleAdmin {
			log.Warn("Configured admin email belongs to a non-admin account", zap.String("email", admin.Email))
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// the rate limiter lets requests through while redis is unreachable
		log.Warn("Redis is unreachable, rate limiting is inactive", zap.Error(err))
	}

	disk, err := media.NewDiskStore(cfg.Media.Root, cfg.Media.ProductsDir)
	if err != nil {
		log.Fatal("Failed to prepare image directory", zap.Error(err))
	}
	generator := media.NewGenerator(
		media.WebPEncoder{Quality: cfg.Media.WebPQuality},
		media.AVIFEncoder{Quality: cfg.Media.AVIFQuality, Speed: cfg.Media.AVIFSpeed},
	)

	publisher := newPublisher(cfg.Kafka, log)

	srv := server.NewServer(cfg, log, server.Dependencies{
		Store:     store,
		Disk:      disk,
		Generator: generator,
		Publisher: publisher,
		Redis:     redisClient,
		Metrics:   metrics.New(),
		Health:    dbService,
		Tokens:    tokens,
		Hasher:    hasher,
	},
		func() error { publisher.Close(); return nil },
		redisClient.Close,
		dbService.Close,
	)

	done := make(chan bool, 1)

	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
