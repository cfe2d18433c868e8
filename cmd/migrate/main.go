package main

import (
	"context"
	"flag"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logging"
	"storefront/internal/migrate"
)

func main() {
	var down int
	flag.IntVar(&down, "down", 0, "Roll back this many migrations instead of applying")
	flag.Parse()

	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, "migrate")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, db.WithMaxConns(2))
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	var st migrate.Status
	if down > 0 {
		st, err = migrate.Down(ctx, pool, down)
	} else {
		st, err = migrate.Apply(ctx, pool)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	logger.Info().Uint("version", st.Version).Bool("dirty", st.Dirty).Msg("schema up to date")
}
