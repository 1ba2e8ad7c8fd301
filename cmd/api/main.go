package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/01moynul/catering-golang/internal/auth"
	"github.com/01moynul/catering-golang/internal/config"
	"github.com/01moynul/catering-golang/internal/database"
	"github.com/01moynul/catering-golang/internal/handlers"
	"github.com/01moynul/catering-golang/internal/idempotency"
	"github.com/01moynul/catering-golang/internal/logger"
	"github.com/01moynul/catering-golang/internal/middleware"
	"github.com/01moynul/catering-golang/internal/orders"
	"github.com/01moynul/catering-golang/internal/routes"
	"github.com/01moynul/catering-golang/internal/store"
	"github.com/01moynul/catering-golang/internal/tracer"
	"github.com/01moynul/catering-golang/internal/uploads"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("catering api: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 0. --- Configuration & Logging ---
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	zlog, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer zlog.Sync()

	shutdownTracer, err := tracer.Init(ctx, cfg.Tracing.ServiceName, cfg.Tracing.OTLPEndpoint)
	if err != nil {
		return err
	}

	// 1. --- Database ---
	db, err := database.OpenDB(ctx, cfg.Database, zlog)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, zlog); err != nil {
			return err
		}
	}

	// 2. --- Idempotency store ---
	var idem idempotency.Store = idempotency.NewMemoryStore()
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		idem = idempotency.NewRedisStore(rdb)
		zlog.Info("idempotency store: redis", zap.String("addr", cfg.Redis.Address))
	} else {
		zlog.Warn("idempotency store: in-memory, keys are not shared between replicas")
	}

	// 3. --- Order core ---
	rate, err := cfg.Orders.Rate()
	if err != nil {
		return err
	}
	mysqlStore := store.New(db)
	service, err := orders.NewService(orders.ServiceDeps{
		Store:         mysqlStore,
		Logger:        zlog.Named("orders"),
		AllowOversell: cfg.Orders.AllowOversell,
		CashbackRate:  rate,
	})
	if err != nil {
		return err
	}

	storage, err := uploads.NewLocalStorage(cfg.Uploads.Dir, cfg.Uploads.BaseURL, cfg.Uploads.MaxBytes)
	if err != nil {
		return err
	}

	// --- Application Setup ---
	app := &handlers.Handlers{
		Orders:  service,
		Users:   mysqlStore,
		Tokens:  auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL),
		Uploads: storage,
		Logger:  zlog,
	}

	gin.SetMode(gin.ReleaseMode)
	router := routes.SetupRouter(app, routes.Options{
		ServiceName:    cfg.Tracing.ServiceName,
		Idempotency:    idem,
		IdempotencyTTL: cfg.Orders.IdempotencyTTL,
		GuestLimiter:   middleware.NewRateLimiter(cfg.RateLimit.GuestRPS, cfg.RateLimit.GuestBurst),
		UploadsURL:     storage.BaseURL(),
		UploadsDir:     storage.Dir(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      routes.WithCORS(router, cfg.CORS.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// --- Start Server ---
	errCh := make(chan error, 1)
	go func() {
		zlog.Info("catering api listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		zlog.Warn("tracer shutdown failed", zap.Error(err))
	}
	zlog.Info("server stopped cleanly")
	return nil
}
