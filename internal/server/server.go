package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/authz"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/metrics"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/storage"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const blacklistKeyPrefix = "storefront:blacklist"

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, db database.Service) (*Server, error) {
	// Create router
	router := chi.NewRouter()

	var httpMetrics *metrics.HTTPMetrics
	if cfg.Metrics.Enabled {
		httpMetrics = metrics.NewHTTPMetrics(cfg.Metrics.Namespace)
	}

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	if httpMetrics != nil {
		router.Use(httpMetrics.Middleware)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := db.Health(r.Context())
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, health)
	})
	if httpMetrics != nil {
		router.Handle("/metrics", httpMetrics.Handler())
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	var images storage.ImageStore
	if cfg.Storage.Enabled() {
		store, err := storage.NewS3ImageStore(ctx, cfg.Storage)
		if err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("failed to create image store: %w", err)
		}
		images = store
	} else {
		logger.Info("Object storage not configured, product image uploads disabled")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB())
	refreshTokenRepo := repository.NewRefreshTokenRepository(db.DB())
	categoryRepo := repository.NewCategoryRepository(db.DB())
	productRepo := repository.NewProductRepository(db.DB())
	blacklist := repository.NewTokenBlacklist(redisClient, blacklistKeyPrefix)

	// Initialize services
	gate := authz.NewGate(cfg.Catalog.OwnerSeesInactive)
	userService := service.NewUserService(userRepo, refreshTokenRepo, blacklist, cfg.JWT, logger)
	categoryService := service.NewCategoryService(categoryRepo, gate)
	productService := service.NewProductService(productRepo, categoryRepo, gate, images)

	// Initialize handlers
	userHandler := transport.NewUserHandler(userService, httpMetrics, logger)
	categoryHandler := transport.NewCategoryHandler(categoryService, cfg.Catalog, logger)
	productHandler := transport.NewProductHandler(productService, cfg.Catalog, images != nil, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(userService, logger)
	optionalAuth := custommiddleware.OptionalAuthMiddleware(userService, logger)

	var authLimits []func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		authLimits = append(authLimits, custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "storefront:ratelimit:auth",
		}, logger))
	}

	// Register routes
	userHandler.RegisterRoutes(router, authMiddleware, authLimits...)
	categoryHandler.RegisterRoutes(router, optionalAuth)
	productHandler.RegisterRoutes(router, optionalAuth)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server, nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
