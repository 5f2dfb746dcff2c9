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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/quantfolio/portfolio-service/internal/api"
	"github.com/quantfolio/portfolio-service/internal/config"
	"github.com/quantfolio/portfolio-service/internal/database"
	"github.com/quantfolio/portfolio-service/internal/kafka"
	"github.com/quantfolio/portfolio-service/internal/marketdata"
	"github.com/quantfolio/portfolio-service/internal/portfolio"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Missing .env is fine; env vars or defaults take over
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg := config.Load()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate("file://db/migrations"); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	log.Info("database ready")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	defer rdb.Close()

	avClient := marketdata.NewAlphaVantageClientWithBaseURL(cfg.MarketData.APIKey, cfg.MarketData.BaseURL)
	provider := marketdata.NewCachedProvider(avClient, rdb)

	historyService := portfolio.NewHistoryService(db, provider)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, historyService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error("kafka consumer stopped", "error", err)
		}
	}()

	handler := api.NewHandler(db, historyService, provider, producer)
	router := api.SetupRoutes(handler)

	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
