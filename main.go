package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"flashsale/clock"
	"flashsale/config"
	"flashsale/handler"
	"flashsale/metrics"
	"flashsale/repository"
	"flashsale/service"
	"flashsale/worker"
)

const (
	startupTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Parse()
	if err != nil {
		fatal("load config", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.NewSystem()

	// 1. Shared store. Every in-flight reservation attempt holds one pooled
	// connection for its watch, so PoolSize bounds transaction concurrency.
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		DialTimeout:  cfg.StoreTimeout,
		ReadTimeout:  cfg.StoreTimeout,
		WriteTimeout: cfg.StoreTimeout,
	})
	defer rdb.Close()

	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := rdb.Ping(startupCtx).Err(); err != nil {
		fatal("redis ping", err)
	}

	store := repository.NewRedisRepository(rdb, cfg.ProductID)
	saleCfg := cfg.Sale(clk.Now())
	if cfg.StartsAt.IsZero() || cfg.EndsAt.IsZero() {
		slog.Warn("sale window not fully configured, using fallbacks",
			"starts_at", saleCfg.StartsAt, "ends_at", saleCfg.EndsAt)
	}
	if err := store.Seed(startupCtx, saleCfg); err != nil {
		fatal("seed sale", err)
	}
	slog.Info("sale seeded",
		"product_id", saleCfg.ProductID,
		"starts_at", saleCfg.StartsAt,
		"ends_at", saleCfg.EndsAt,
		"initial_stock", saleCfg.InitialStock)

	if stock, err := store.Stock(startupCtx); err == nil {
		metrics.StockLevel.Set(float64(stock))
	}

	// 2. Durable order storage behind the event stream.
	db, err := gorm.Open(mysql.Open(cfg.MySQLDSN), &gorm.Config{})
	if err != nil {
		fatal("mysql open", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		fatal("mysql pool", err)
	}
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	defer sqlDB.Close()

	orderRepo := repository.NewMySQLRepository(db)
	if err := orderRepo.Migrate(); err != nil {
		fatal("mysql migrate", err)
	}

	// 3. Order event stream producer.
	events := repository.NewKafkaRepository(cfg.KafkaBrokers, cfg.OrderTopic, cfg.DLQTopic)
	defer events.Close()

	// 4. Engine.
	svc := service.NewSaleService(store, events, clk,
		service.WithMaxAttempts(cfg.MaxAttempts),
		service.WithBackoffBase(cfg.BackoffBase),
	)

	// 5. In-process consumer settles committed orders into MySQL.
	orderWorker := worker.NewOrderWorker(cfg.KafkaBrokers, cfg.OrderTopic, cfg.DLQTopic,
		cfg.ConsumerGroup, orderRepo, events)
	defer orderWorker.Close()
	go orderWorker.Start(ctx)

	// 6. Background samplers and the metrics endpoint.
	go svc.StartStockGauge(ctx, cfg.GaugeInterval)

	go func() {
		slog.Info("metrics server listening", "addr", cfg.MetricsAddr)
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, metricsMux); err != nil {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	// 7. HTTP surface. Reserve sits behind the CSRF gate and the shared
	// rate limiter; reads stay open.
	limiter := handler.NewRateLimiter(rdb, cfg.RateLimitRPM, cfg.RateLimitBurst)

	mux := http.NewServeMux()
	mux.Handle("/healthz", handler.HandleHealthz())
	mux.Handle("/csrf", handler.HandleCSRFToken())
	mux.Handle("/sale/status", handler.HandleStatus(svc))
	mux.Handle("/sale/reserve",
		handler.RequireCSRF(limiter.Limit(handler.HandleReserve(svc, cfg.ReserveBudget))))
	mux.Handle("/sale/purchase", handler.HandleLookup(svc))
	mux.Handle("/admin/orders", handler.HandleOrders(store))
	mux.Handle("/admin/recover-dlq", handler.HandleRecoverDLQ(orderWorker))

	root := handler.RequestLogger(handler.CORS(cfg.CORSOrigins, mux))

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      root,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	slog.Info("sale server listening", "addr", cfg.Addr)
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
