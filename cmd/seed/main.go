package main

import (
	"context"
	"time"

	"authgate/internal/config"
	"authgate/internal/database"
	"authgate/internal/log"
	"authgate/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	if err := seed.Run(ctx, dbPool, cfg.Seed, cfg.Security.BcryptCost, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed failed")
	}

	logger.Info().Msg("seed complete")
}
