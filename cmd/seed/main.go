package main

import (
	"context"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logging"
	"storefront/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, "seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	res, err := seed.Apply(ctx, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed apply")
	}

	logger.Info().Str("user_id", res.UserID).Str("email", res.Email).Bool("created", res.Created).Msg("seed applied")
}
