package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"flashsale/config"
	"flashsale/repository"
	"flashsale/worker"
)

// Standalone order persister. Runs the same consumer the API server embeds,
// for deployments that scale ingestion separately from the HTTP tier.
func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Parse()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(mysql.Open(cfg.MySQLDSN), &gorm.Config{})
	if err != nil {
		slog.Error("mysql open", "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("mysql pool", "error", err)
		os.Exit(1)
	}
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	defer sqlDB.Close()

	orderRepo := repository.NewMySQLRepository(db)
	if err := orderRepo.Migrate(); err != nil {
		slog.Error("mysql migrate", "error", err)
		os.Exit(1)
	}

	events := repository.NewKafkaRepository(cfg.KafkaBrokers, cfg.OrderTopic, cfg.DLQTopic)
	defer events.Close()

	go func() {
		slog.Info("metrics server listening", "addr", cfg.MetricsAddr)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	w := worker.NewOrderWorker(cfg.KafkaBrokers, cfg.OrderTopic, cfg.DLQTopic,
		cfg.ConsumerGroup, orderRepo, events)
	defer w.Close()

	w.Start(ctx)
}
