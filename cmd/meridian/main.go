package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-shop/meridian/internal/accounts"
	"github.com/meridian-shop/meridian/internal/app"
	"github.com/meridian-shop/meridian/internal/auth"
	"github.com/meridian-shop/meridian/internal/platform/cache"
	"github.com/meridian-shop/meridian/internal/platform/db"
	"github.com/meridian-shop/meridian/internal/products"
	"github.com/meridian-shop/meridian/internal/rbac"
	"github.com/meridian-shop/meridian/internal/token"
	"github.com/meridian-shop/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Role lookups degrade to plain queries without the cache.
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	roleService := rbac.NewService(rbac.NewRepository(pool), redisClient, cfg.RoleCacheTTL)
	// A missing default role is a broken seed; refuse to start.
	if _, err := roleService.Default(ctx); err != nil {
		logger.Error("verify default role", slog.Any("error", err))
		os.Exit(1)
	}

	accountRepo := accounts.NewRepository(pool)
	accountService := accounts.NewService(accountRepo)

	tokenService, err := token.NewService([]byte(cfg.TokenSecret), accountRepo)
	if err != nil {
		logger.Error("init token service", slog.Any("error", err))
		os.Exit(1)
	}

	mailClient := jobsClient(cfg)
	defer func() {
		if err := mailClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(accountService, tokenService, roleService, mailClient, cfg.PublicBaseURL, logger)
	authHandler := auth.NewHandler(logger, authService)

	gate := rbac.Gate{
		Tokens:   tokenService,
		Accounts: accountRepo,
		Roles:    roleService,
		Logger:   logger,
	}

	productService := products.NewService(products.NewRepository(pool), cfg.ProductDefaultImage)
	productsHandler := products.NewHandler(productService, gate)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthHandler:     authHandler,
		ProductsHandler: productsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func jobsClient(cfg *app.Config) *jobs.Client {
	return jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
}
