// Package main запускает HTTP-сервер сервиса контроля расходов.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/spendcontrol-system/internal/cache"
	"github.com/mmeshcher/spendcontrol-system/internal/config"
	"github.com/mmeshcher/spendcontrol-system/internal/handler"
	"github.com/mmeshcher/spendcontrol-system/internal/ledger"
	"github.com/mmeshcher/spendcontrol-system/internal/middleware"
	"github.com/mmeshcher/spendcontrol-system/internal/repository"
	"github.com/mmeshcher/spendcontrol-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		sugar.Fatalw("cache initialization error", "error", err.Error())
	}
	pingCancel()

	stateReader := cache.NewReader(redisClient)
	ledgerClient := ledger.NewClient(cfg.SyncteraBaseURL, cfg.SyncteraAPIKey, cfg.ExcludeJIT)

	svc := service.NewService(ledgerClient, stateReader)

	var audit handler.DecisionRecorder
	if cfg.DatabaseURI != "" {
		repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		defer repo.Close()
		audit = repo
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthToken)
	h := handler.NewHandler(svc, audit, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting spend control server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
