package server

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"product-catalog/internal/auth"
	"product-catalog/internal/config"
	"product-catalog/internal/events"
	"product-catalog/internal/media"
	"product-catalog/internal/metrics"
	custommiddleware "product-catalog/internal/middleware"
	"product-catalog/internal/repository"
	"product-catalog/internal/service"
	"product-catalog/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HealthChecker reports the state of a backing store
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

// Dependencies are the collaborators the HTTP server is built from
type Dependencies struct {
	Store     repository.Store
	Disk      *media.DiskStore
	Generator service.VariantGenerator
	Publisher events.Publisher
	Redis     redis.Cmdable
	Metrics   *metrics.Metrics
	Health    HealthChecker
	Tokens    *auth.TokenManager
	Hasher    *auth.PasswordHasher
}

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	closers []func() error
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies, closers ...func() error) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      NewRouter(cfg, logger, deps),
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		config:  cfg,
		logger:  logger,
		closers: closers,
	}
}

// NewRouter wires services, handlers and middleware into the chi router
func NewRouter(cfg *config.Config, logger *zap.Logger, deps Dependencies) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(custommiddleware.LoggingMiddleware(logger, deps.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, !cfg.Server.IsProduction()))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "up"}
		if deps.Health != nil {
			status = deps.Health.Health(r.Context())
		}
		code := http.StatusOK
		if status["status"] != "up" {
			code = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, code, status)
	})
	router.Handle("/metrics", deps.Metrics.Handler())
	imagePrefix := strings.TrimSuffix(deps.Disk.PublicDir(), "/")
	router.Handle(imagePrefix+"/*", staticFiles(imagePrefix, deps.Disk.Dir()))

	timeout := cfg.Database.OperationTimeout

	gateway := service.NewImageGateway(deps.Disk, deps.Metrics, logger)
	productService := service.NewProductService(deps.Store, gateway, deps.Publisher, deps.Metrics, logger, service.ProductServiceConfig{
		OperationTimeout: timeout,
		RecordViews:      cfg.Catalog.RecordViews,
	})
	imageService := service.NewImageService(deps.Disk, deps.Generator, service.UploadLimits{
		MaxFiles:    cfg.Media.MaxFiles,
		MaxFileSize: cfg.Media.MaxFileSize,
		Workers:     cfg.Media.Workers,
	}, deps.Metrics, logger)
	userService := service.NewUserService(deps.Store.Users(), deps.Hasher, deps.Tokens, timeout)
	wishlistService := service.NewWishlistService(deps.Store, timeout)

	productHandler := transport.NewProductHandler(productService, logger)
	imageHandler := transport.NewImageHandler(imageService, productService, cfg.Media.MaxFiles, cfg.Media.MaxFileSize, logger)
	userHandler := transport.NewUserHandler(userService, logger)
	wishlistHandler := transport.NewWishlistHandler(wishlistService, logger)

	authMiddleware := custommiddleware.AuthMiddleware(deps.Tokens, logger)
	rateLimit := custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "rate_limit:auth",
	}, logger)

	router.Route("/admin/v1.0", func(r chi.Router) {
		if cfg.Server.AdminAuthEnabled {
			r.Use(authMiddleware)
			r.Use(custommiddleware.RequireAdmin(logger))
		}
		productHandler.RegisterAdminRoutes(r)
		imageHandler.RegisterRoutes(r)
	})

	router.Route("/user/v1.0", func(r chi.Router) {
		productHandler.RegisterUserRoutes(r)
		userHandler.RegisterRoutes(r, rateLimit)
		wishlistHandler.RegisterRoutes(r, authMiddleware)
	})

	return router
}

// staticFiles serves the files of dir under prefix. Directory listings and paths with
// ".." segments answer 404, so nothing outside dir is reachable.
func staticFiles(prefix, dir string) http.Handler {
	files := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") || slices.Contains(strings.Split(r.URL.Path, "/"), "..") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		files.ServeHTTP(w, r)
	})
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			s.logger.Error("Failed to close resource", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
