package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/clients"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/config"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/events"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/handlers"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/metrics"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/migrations"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/pos"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/repository"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/server"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/service"
)

func main() {
	cfg := config.Load()

	logging.Init(cfg.Env)
	defer logging.Sync()
	logger := logging.Named("main")

	logger.Info("starting clubhouse-orders-service",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.Up(db, logging.Named("migrate")); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	rdb := repository.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	orderRepo := repository.NewPostgresOrderRepository(db)
	catalogRepo := repository.NewPostgresCatalogRepository(db)
	outboxRepo := repository.NewPostgresOutboxRepository(db)
	deliveryConfigRepo := repository.NewPostgresDeliveryConfigRepository(db)

	var orderCache service.OrderCache
	if cfg.Features.EnableOrderCaching {
		orderCache = repository.NewRedisOrderCache(rdb, cfg.Redis.TTL)
	}
	deliveryConfigs := service.NewDeliveryConfigService(
		deliveryConfigRepo,
		repository.NewRedisDeliveryConfigCache(rdb, cfg.Redis.TTL),
	)

	var distance service.DistanceEstimator
	if cfg.DistanceService.BaseURL != "" {
		distance = clients.NewHTTPDistanceClient(cfg.DistanceService)
	} else {
		logger.Warn("DISTANCE_SERVICE_URL not set, delivery fees use client estimates only")
	}
	assembler := service.NewAssembler(deliveryConfigs, distance, cfg.Pricing.TaxRate, m, logging.Named("assembler"))

	notifier := clients.NewHTTPNotificationClient(cfg.NotificationService)

	var publisher service.EventPublisher
	if cfg.Features.EnableOrderEvents {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	orderService := service.NewOrderService(
		orderRepo,
		catalogRepo,
		outboxRepo,
		orderCache,
		assembler,
		notifier,
		publisher,
		cfg,
		m,
	)
	financeService := service.NewFinanceService(orderRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var worker *pos.Worker
	if cfg.Features.EnablePOSSync {
		mapper := pos.NewMapper(cfg.POS.LocationID, cfg.Pricing.Currency, cfg.POS.Timezone)
		syncer := pos.NewSyncer(orderRepo, pos.NewClient(cfg.POS), mapper)
		worker = pos.NewWorker(outboxRepo, syncer, cfg.Worker, m)
		go worker.Start(ctx)
	}

	consumer := events.NewKafkaConsumer(cfg.Kafka, orderService)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error("payment event consumer stopped", zap.Error(err))
		}
	}()

	checks := map[string]handlers.ReadinessCheck{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}
	h := handlers.NewHandlers(orderService, financeService, deliveryConfigs, checks)
	srv := server.NewServer(cfg, h, registry, m, logging.Named("http"))

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	cancel()
	if worker != nil {
		worker.Stop()
	}
	if err := consumer.Stop(); err != nil {
		logger.Error("failed to close payment consumer", zap.Error(err))
	}

	logger.Info("server exited")
}

func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logging.Named("main").Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("name", cfg.Database.Name),
	)

	return db, nil
}
