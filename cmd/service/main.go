package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stonemarket/config"
	"stonemarket/internal/cache"
	"stonemarket/internal/producer"
	"stonemarket/internal/repository"
	"stonemarket/internal/service"
	"stonemarket/internal/sweeper"
	"stonemarket/internal/transport/http/middleware"
	"stonemarket/internal/transport/http/router"
	"stonemarket/pkg/database"
	"stonemarket/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	repos := repository.New(db)

	var bus service.EventBus = service.NopBus{}
	if cfg.Kafka.Enabled {
		p := producer.NewEventProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer p.Close()
		bus = p
		log.Info("kafka producer enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	var snap service.SnapshotCache
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSeconds)*time.Second, log)
		if err != nil {
			log.Warn("redis unavailable, snapshot cache disabled", zap.Error(err))
		} else {
			defer rc.Close()
			snap = rc
		}
	}

	batches := service.NewBatchService(repos, snap)
	reservations := service.NewReservationService(repos, bus, log, cfg.Reservations.DefaultExpiry)
	sharing := service.NewSharingService(repos)
	sales := service.NewSaleService(repos, bus, log)

	sw := sweeper.New(reservations, cfg.Reservations.SweepInterval, log)
	sw.Start(context.Background())
	defer sw.Stop()

	r := router.Router(router.Services{
		Batches:      batches,
		Reservations: reservations,
		Sharing:      sharing,
		Sales:        sales,
	}, middleware.JWTConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("HTTP server started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	log.Info("HTTP server stopped gracefully")
}
