package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	JWT       JWTConfig
	Media     MediaConfig
	Catalog   CatalogConfig
	Kafka     KafkaConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Port             string
	Env              string
	LogLevel         string
	AdminAuthEnabled bool
	AllowedOrigins   []string
	MigrateOnly      bool
}

// IsProduction reports whether the service runs with production settings
func (c ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

type DatabaseConfig struct {
	Host             string
	Port             string
	User             string
	Password         string
	Database         string
	Schema           string
	SSLMode          string
	MaxOpenConns     int
	OperationTimeout time.Duration
}

// DSN builds the pgx connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode, c.Schema)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port of the redis server
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type JWTConfig struct {
	Secret       string
	AccessExpiry int // in minutes
}

// MediaConfig describes where uploaded product images live and how variants are encoded
type MediaConfig struct {
	Root        string
	ProductsDir string
	MaxFiles    int
	MaxFileSize int64
	Workers     int
	WebPQuality int
	AVIFQuality int
	AVIFSpeed   int
}

type CatalogConfig struct {
	RecordViews bool
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether catalog events should be published
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// AdminConfig seeds the administrator account at startup
type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

func (c AdminConfig) Enabled() bool {
	return c.Email != "" && c.Password != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ADMIN_AUTH_ENABLED", true)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_OPERATION_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_REQUESTS", 20)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	v.SetDefault("JWT_ACCESS_EXPIRY", 24*60)
	v.SetDefault("MEDIA_ROOT", ".")
	v.SetDefault("MEDIA_PRODUCTS_DIR", "public/images/products")
	v.SetDefault("MEDIA_MAX_FILES", 12)
	v.SetDefault("MEDIA_MAX_FILE_SIZE", 10<<20)
	v.SetDefault("MEDIA_WORKERS", 4)
	v.SetDefault("MEDIA_WEBP_QUALITY", 80)
	v.SetDefault("MEDIA_AVIF_QUALITY", 60)
	v.SetDefault("MEDIA_AVIF_SPEED", 8)
	v.SetDefault("CATALOG_RECORD_VIEWS", true)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "catalog-events")
	v.SetDefault("ADMIN_NAME", "Administrator")
}

// Load reads configuration from .env files, the environment and command-line flags.
// Flags win over the environment, which wins over .env files.
func Load() *Config {
	flags := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	flags.String("port", "", "HTTP port (overrides SERVER_PORT)")
	flags.String("env", "", "environment name (overrides SERVER_ENV)")
	flags.Bool("migrate-only", false, "apply database migrations and exit")
	_ = flags.Parse(os.Args[1:])

	cfg, err := LoadFrom(flags, ".env", "../.env")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom builds a Config from the given flag set and optional .env files.
// Missing .env files are ignored.
func LoadFrom(flags *pflag.FlagSet, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: Could not read env file %s: %v", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if flags != nil {
		bindings := map[string]string{
			"SERVER_PORT":  "port",
			"SERVER_ENV":   "env",
			"MIGRATE_ONLY": "migrate-only",
		}
		for key, name := range bindings {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:             v.GetString("SERVER_PORT"),
			Env:              v.GetString("SERVER_ENV"),
			LogLevel:         v.GetString("LOG_LEVEL"),
			AdminAuthEnabled: v.GetBool("ADMIN_AUTH_ENABLED"),
			AllowedOrigins:   splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			MigrateOnly:      v.GetBool("MIGRATE_ONLY"),
		},
		Database: DatabaseConfig{
			Host:             v.GetString("DB_HOST"),
			Port:             v.GetString("DB_PORT"),
			User:             v.GetString("DB_USER"),
			Password:         v.GetString("DB_PASSWORD"),
			Database:         v.GetString("DB_DATABASE"),
			Schema:           v.GetString("DB_SCHEMA"),
			SSLMode:          v.GetString("DB_SSLMODE"),
			MaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
			OperationTimeout: v.GetDuration("DB_OPERATION_TIMEOUT"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		JWT: JWTConfig{
			Secret:       v.GetString("JWT_SECRET"),
			AccessExpiry: v.GetInt("JWT_ACCESS_EXPIRY"),
		},
		Media: MediaConfig{
			Root:        v.GetString("MEDIA_ROOT"),
			ProductsDir: v.GetString("MEDIA_PRODUCTS_DIR"),
			MaxFiles:    v.GetInt("MEDIA_MAX_FILES"),
			MaxFileSize: v.GetInt64("MEDIA_MAX_FILE_SIZE"),
			Workers:     v.GetInt("MEDIA_WORKERS"),
			WebPQuality: v.GetInt("MEDIA_WEBP_QUALITY"),
			AVIFQuality: v.GetInt("MEDIA_AVIF_QUALITY"),
			AVIFSpeed:   v.GetInt("MEDIA_AVIF_SPEED"),
		},
		Catalog: CatalogConfig{
			RecordViews: v.GetBool("CATALOG_RECORD_VIEWS"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Admin: AdminConfig{
			Name:     v.GetString("ADMIN_NAME"),
			Email:    v.GetString("ADMIN_EMAIL"),
			Password: v.GetString("ADMIN_PASSWORD"),
		},
	}

	if cfg.JWT.Secret == "" && cfg.Server.IsProduction() {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
