package main

import (
	"context"
	"os"

	"stonemarket/config"
	"stonemarket/internal/migrate"
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

	db := database.ConnectDBForMigration(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	opts := migrate.DefaultMigrateOptions()
	if err := migrate.MigrateMarketDB(context.Background(), db, log, opts); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	log.Info("migration completed")
}
