package main

import (
	"context"
	"os"

	"stonemarket/config"
	"stonemarket/internal/repository"
	"stonemarket/internal/service"
	"stonemarket/internal/sweeper"
	"stonemarket/pkg/database"
	"stonemarket/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// One-shot expiry sweep for cron-style scheduling; the long-running
// service runs the same sweep on its own ticker.
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
	reservations := service.NewReservationService(repos, service.NopBus{}, log, cfg.Reservations.DefaultExpiry)

	sw := sweeper.New(reservations, cfg.Reservations.SweepInterval, log)
	expired, err := sw.RunOnceNow(context.Background())
	if err != nil {
		log.Fatal("sweep failed", zap.Error(err))
	}
	log.Info("sweep completed", zap.Int("expired", expired))
}
