package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/attendance-bridge/internal/api"
	"github.com/shaiso/attendance-bridge/internal/config"
	"github.com/shaiso/attendance-bridge/internal/controller"
	"github.com/shaiso/attendance-bridge/internal/dispatch"
	"github.com/shaiso/attendance-bridge/internal/domain"
	"github.com/shaiso/attendance-bridge/internal/mq"
	"github.com/shaiso/attendance-bridge/internal/oplog"
	"github.com/shaiso/attendance-bridge/internal/repo"
	"github.com/shaiso/attendance-bridge/internal/store"
	"github.com/shaiso/attendance-bridge/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting bridge-consumerd")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Подключаемся к базе данных
	pool, err := repo.NewPool(context.Background(), cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Репозитории и внешнее хранилище
	controllerRepo := repo.NewControllerRepo(pool)
	logRepo := repo.NewLogRepo(pool)
	recordStore := store.NewPGStore(pool)

	// Сервис журнала операций и диспетчер сообщений
	svc := oplog.NewService(logRepo, recordStore, logger)
	dispatcher := dispatch.New(svc, logger)

	// Реестр consumer'ов и менеджер контроллеров
	registry := mq.NewRegistry(logger)
	manager := controller.New(controller.Config{
		Controllers: controllerRepo,
		Registry:    registry,
		BrokerURL:   cfg.AMQPURL(),
		OnMessage:   dispatcher.Handle,
		Logger:      logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Bootstrap-контроллер из RABBITMQ_QUEUE (если задан)
	if cfg.Queue != "" {
		if err := bootstrapQueue(ctx, manager, controllerRepo, cfg.Queue); err != nil {
			logger.Error("bootstrap queue failed", "queue", cfg.Queue, "error", err)
			os.Exit(1)
		}
	}

	// Поднимаем consumer'ы, которые были running до рестарта
	if err := manager.ResumeRunning(ctx); err != nil {
		logger.Error("resume running controllers failed", "error", err)
		os.Exit(1)
	}

	// Периодический retention-свип журнала
	sweeper := cron.New()
	_, err = sweeper.AddFunc("@every 1h", func() {
		purged, err := svc.PurgeSuccessfulOlderThan(context.Background(), oplog.DefaultRetention)
		if err != nil {
			logger.Error("log purge failed", "error", err)
			return
		}
		if purged > 0 {
			logger.Info("log purge done", "purged", purged)
		}
	})
	if err != nil {
		logger.Error("failed to schedule log purge", "error", err)
		os.Exit(1)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Admin HTTP API
	handler := api.NewHandler(api.Config{
		Manager:        manager,
		ControllerRepo: controllerRepo,
		LogRepo:        logRepo,
		Oplog:          svc,
		Logger:         logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.AdminPort),
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Сначала consumer'ы, потом HTTP: API не должен видеть полуостановленный реестр.
	manager.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// bootstrapQueue гарантирует controller для очереди из конфигурации
// и запускает его. Уже существующий контроллер не пересоздаётся.
func bootstrapQueue(ctx context.Context, manager *controller.Manager, controllers *repo.ControllerRepo, queue string) error {
	existing, err := controllers.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range existing {
		if c.Queue == queue {
			return nil
		}
	}

	c, err := manager.Create(ctx, "", queue, "", domain.ExchangeDirect)
	if err != nil {
		return err
	}
	if _, err := manager.Start(ctx, c.ID); err != nil {
		return err
	}
	return nil
}
