// Package main запускает HTTP-сервер витрины Давахана.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/davakhana/internal/config"
	"github.com/mmeshcher/davakhana/internal/handler"
	"github.com/mmeshcher/davakhana/internal/middleware"
	"github.com/mmeshcher/davakhana/internal/notify"
	"github.com/mmeshcher/davakhana/internal/repository"
	"github.com/mmeshcher/davakhana/internal/service"
	"github.com/mmeshcher/davakhana/internal/validation"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	if !validation.IsValidPhone(cfg.OpsPhone) {
		sugar.Fatalw("configuration error", "error", "invalid operations phone", "phone", cfg.OpsPhone)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(cfg, logger)
	if err != nil {
		sugar.Fatalw("storage initialization error", "error", err.Error())
	}

	if err := repo.SeedMedicines(ctx, repository.DefaultCatalog()); err != nil {
		sugar.Fatalw("catalog seed error", "error", err.Error())
	}

	notifier, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		sugar.Fatalw("notifier initialization error", "error", err.Error())
	}

	svc := service.NewService(repo,
		service.WithLogger(logger),
		service.WithNotifier(notifier),
		service.WithOpsPhone(cfg.OpsPhone),
		service.WithLatency(cfg.SimulatedLatency),
		service.WithShipAfter(cfg.ShipAfter),
		service.WithTrackingInterval(cfg.TrackingInterval),
	)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Фоновое продвижение статусов заказов
	g.Go(func() error {
		return svc.RunTracking(ctx)
	})

	g.Go(func() error {
		sugar.Infow("starting davakhana server", "addr", cfg.RunAddress)
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

// openRepository выбирает хранилище: PostgreSQL, затем SQLite, иначе память процесса.
func openRepository(cfg *config.Config, logger *zap.Logger) (service.Repository, error) {
	switch {
	case cfg.DatabaseURI != "":
		logger.Info("using postgres storage")
		repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case cfg.SQLitePath != "":
		logger.Info("using sqlite storage", zap.String("path", cfg.SQLitePath))
		repo, err := repository.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		logger.Warn("no database configured, using in-memory storage")
		return repository.NewMemoryRepository(), nil
	}
}

// newNotifier выбирает канал SMS: AWS SNS, затем HTTP-шлюз, иначе журнал.
func newNotifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Notifier, error) {
	switch {
	case cfg.SNSRegion != "":
		logger.Info("using sns notifier", zap.String("region", cfg.SNSRegion))
		n, err := notify.NewSNSNotifier(ctx, cfg.SNSRegion)
		if err != nil {
			return nil, err
		}
		return n, nil
	case cfg.SMSGatewayAddress != "":
		logger.Info("using sms gateway notifier", zap.String("addr", cfg.SMSGatewayAddress))
		return notify.NewClient(cfg.SMSGatewayAddress), nil
	default:
		return notify.NewLogNotifier(logger), nil
	}
}
