package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/scissors/internal/config"
	"github.com/SergeiKhy/scissors/internal/geo"
	"github.com/SergeiKhy/scissors/internal/handler"
	"github.com/SergeiKhy/scissors/internal/middleware"
	"github.com/SergeiKhy/scissors/internal/repository"
	"github.com/SergeiKhy/scissors/internal/repository/memory"
	"github.com/SergeiKhy/scissors/internal/service"
	"github.com/SergeiKhy/scissors/internal/token"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// storage набор репозиториев выбранного драйвера
type storage struct {
	users   repository.UserRepository
	aliases repository.AliasRepository
	clicks  repository.ClickRepository
	domains repository.DomainRepository
	cache   repository.CacheRepository
	closers []func()
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, err := newLogger(cfg.App.Env)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	if cfg.App.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := openStorage(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.Close()

	// Токены выдаются только при заданном секрете
	var tokens *token.Manager
	if cfg.Auth.JWTSecret != "" {
		tokens = token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
		logger.Info("JWT authentication enabled", zap.Duration("ttl", cfg.Auth.JWTTTL))
	}

	// Инициализация сервисов
	aliasService := service.NewAliasService(store.aliases, store.cache, cfg.Redis.TTL, logger)
	userService := service.NewUserService(store.users, tokens, cfg.App.DefaultProfileImg, logger)
	domainService := service.NewDomainService(store.domains, net.DefaultResolver, logger)

	// Процессор кликов (Worker Pool)
	locator := geo.NewClient(cfg.Geo.Endpoint, cfg.Geo.Timeout, logger)
	clickProcessor := service.NewClickProcessor(store.clicks, userService, locator, logger, service.ClickProcessorConfig{
		Workers: cfg.Clicks.Workers,
		Buffer:  cfg.Clicks.Buffer,
	})
	clickProcessor.Start()

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})
	defer rateLimiter.Stop()

	if len(cfg.Auth.APIKeys) > 0 {
		logger.Info("API key authentication enabled", zap.Int("keys_count", len(cfg.Auth.APIKeys)))
	}

	router := handler.NewRouter(handler.RouterDeps{
		Aliases:     aliasService,
		Clicks:      clickProcessor,
		Users:       userService,
		Domains:     domainService,
		RateLimiter: rateLimiter,
		APIKeys:     cfg.Auth.APIKeys,
		Tokens:      tokens,
		CORSOrigins: cfg.CORS.Origins,
		BaseURL:     cfg.App.BaseURL,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("port", cfg.App.Port),
			zap.String("storage", cfg.Storage.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Новых редиректов больше нет: дообрабатываем очередь кликов до закрытия хранилища
	clickProcessor.Stop()

	logger.Info("Server exited")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openStorage подключает PostgreSQL (со схемой) или in-memory хранилище и кэш
func openStorage(cfg *config.Config, logger *zap.Logger) (*storage, error) {
	store := &storage{}

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		mem := memory.NewStore()
		store.users, store.aliases, store.clicks, store.domains = mem.Users, mem.Aliases, mem.Clicks, mem.Domains
		logger.Warn("Using in-memory storage, data is lost on restart")

	case config.StoragePostgres:
		db, err := repository.NewPostgresDB(cfg.DB)
		if err != nil {
			return nil, err
		}
		store.closers = append(store.closers, db.Close)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}

		store.users = repository.NewUserRepository(db)
		store.aliases = repository.NewAliasRepository(db)
		store.clicks = repository.NewClickRepository(db)
		store.domains = repository.NewDomainRepository(db)
		logger.Info("Connected to PostgreSQL")

	default:
		return nil, errors.New("unknown STORAGE_DRIVER: " + cfg.Storage.Driver)
	}

	store.cache = repository.NewNopCacheRepository()
	if cfg.Redis.Enabled() {
		redis, err := repository.NewRedisClient(cfg.Redis)
		if err != nil {
			store.Close()
			return nil, err
		}
		store.closers = append(store.closers, func() { _ = redis.Close() })
		store.cache = repository.NewCacheRepository(redis)
		logger.Info("Connected to Redis")
	}

	return store, nil
}
