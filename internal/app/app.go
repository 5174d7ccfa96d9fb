package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"hiresync/database"
	"hiresync/internal/changefeed"
	"hiresync/internal/config"
	"hiresync/internal/handlers"
	"hiresync/internal/logger"
	"hiresync/internal/middleware"
	"hiresync/internal/repositories"
	"hiresync/internal/repositories/memory"
	"hiresync/internal/routes"
	"hiresync/internal/services"
	"hiresync/internal/validator"
	"hiresync/internal/workers"
	"hiresync/pkg/apperrors"
	"hiresync/ws"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Backend - хранилище и брокер изменений, выбранные по конфигу.
type Backend struct {
	Store  repositories.Store
	Broker changefeed.Broker
	DB     *gorm.DB
}

// Close освобождает брокер и пул соединений.
func (b *Backend) Close() {
	if err := b.Broker.Close(); err != nil {
		logger.Warn("Failed to close change feed", "error", err)
	}
	if b.DB != nil {
		if sqlDB, err := b.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func Run() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	logger.Init(cfg.Server.Env)
	apperrors.SetDebug(cfg.Server.Env != "production")
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open storage", "error", err)
	}
	defer backend.Close()

	if err := Serve(ctx, cfg, backend); err != nil {
		logger.Fatal("Server error", "error", err)
	}
	logger.Info("Server stopped")
}

// OpenBackend выбирает хранилище (memory | postgres) и брокер (memory | redis | postgres).
func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	var db *gorm.DB
	if cfg.Database.Driver == "postgres" || cfg.ChangeFeed.Backend == "postgres" {
		logger.Info("Connecting to database...")
		conn, err := database.Connect(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		db = conn
		logger.Info("Database connected")
	}

	broker, err := openBroker(ctx, cfg, db)
	if err != nil {
		if db != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				sqlDB.Close()
			}
		}
		return nil, err
	}
	logger.Info("Change feed ready", "backend", cfg.ChangeFeed.Backend)

	backend := &Backend{Broker: broker, DB: db}
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		backend.Store = memory.NewStore(broker)
	case "postgres":
		if err := database.AutoMigrate(db); err != nil {
			backend.Close()
			return nil, err
		}
		backend.Store = repositories.NewGormStore(db, broker)
	default:
		backend.Close()
		return nil, fmt.Errorf("unknown store driver %q", cfg.Database.Driver)
	}
	return backend, nil
}

func openBroker(ctx context.Context, cfg *config.Config, db *gorm.DB) (changefeed.Broker, error) {
	buffer := cfg.Stream.Buffer
	switch cfg.ChangeFeed.Backend {
	case "memory":
		return changefeed.NewMemoryBroker(buffer), nil
	case "redis":
		return changefeed.NewRedisBroker(ctx, cfg.Redis.URL, cfg.ChangeFeed.Channel, buffer)
	case "postgres":
		return changefeed.NewPostgresBroker(cfg.Database.DSN, db, cfg.ChangeFeed.Channel, buffer)
	default:
		return nil, fmt.Errorf("unknown change feed backend %q", cfg.ChangeFeed.Backend)
	}
}

// SetupRouter собирает сервисы, хэндлеры и WebSocket поверх backend.
// Менеджер подключений нужно запустить отдельно (Manager.Run).
func SetupRouter(cfg *config.Config, backend *Backend) (*gin.Engine, *services.ServiceContainer, *ws.WebSocketManager) {
	serviceContainer := services.NewServiceContainer(backend.Store, backend.Broker, services.Options{
		FeedSize:     cfg.Notifications.FeedSize,
		StreamBuffer: cfg.Stream.Buffer,
	})

	appHandlers := handlers.NewAppHandlers(serviceContainer, validator.New())

	wsManager := ws.NewWebSocketManager(
		serviceContainer.ChatStream,
		serviceContainer.ChatMessenger,
		serviceContainer.NotificationService,
	)
	wsHandler := ws.NewWebSocketHandler(wsManager)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	ginRouter := gin.New()
	ginRouter.Use(middleware.RequestIDMiddleware())
	ginRouter.Use(middleware.LoggingMiddleware())
	ginRouter.Use(middleware.RecoveryMiddleware())
	ginRouter.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))

	routes.RegisterRoutes(ginRouter, appHandlers, wsHandler, cfg.JWT.Secret)
	return ginRouter, serviceContainer, wsManager
}

// Serve запускает HTTP сервер, менеджер WebSocket и воркер очистки
// уведомлений. Возвращается после отмены ctx и graceful shutdown.
func Serve(ctx context.Context, cfg *config.Config, backend *Backend) error {
	ginRouter, serviceContainer, wsManager := SetupRouter(cfg, backend)

	cleaner := workers.NewNotificationWorker(
		serviceContainer.NotificationService,
		cfg.CleanupInterval(),
		cfg.Retention(),
	)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           ginRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		wsManager.Run(gctx)
		return nil
	})
	g.Go(func() error {
		cleaner.Start(gctx)
		cleaner.Wait()
		return nil
	})
	g.Go(func() error {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", address, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
