package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"product-catalog/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Service owns the postgres connection pool and the gorm handle built on top of it
type Service struct {
	sqlDB  *sql.DB
	gormDB *gorm.DB
	logger *zap.Logger
}

// New opens the pool described by cfg and verifies it is reachable
func New(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Service, error) {
	sqlDB, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxOpenConns / 2)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormDB, err := OpenGorm(sqlDB, logger)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &Service{sqlDB: sqlDB, gormDB: gormDB, logger: logger}, nil
}

// OpenGorm wraps an existing postgres pool in a gorm handle
func OpenGorm(sqlDB *sql.DB, logger *zap.Logger) (*gorm.DB, error) {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
		Logger:         NewGormLogger(logger, 200*time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}
	return gormDB, nil
}

func (s *Service) DB() *sql.DB {
	return s.sqlDB
}

func (s *Service) Gorm() *gorm.DB {
	return s.gormDB
}

// Health reports pool statistics, or the ping error when the database is down
func (s *Service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := s.sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}

	dbStats := s.sqlDB.Stats()
	stats["status"] = "up"
	stats["open_connections"] = fmt.Sprint(dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprint(dbStats.InUse)
	stats["idle"] = fmt.Sprint(dbStats.Idle)
	stats["wait_count"] = fmt.Sprint(dbStats.WaitCount)
	return stats
}

func (s *Service) Close() error {
	s.logger.Info("Closing database connection")
	return s.sqlDB.Close()
}
