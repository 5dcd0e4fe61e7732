package main

import (
	"context"

	"github.com/joho/godotenv"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logger"
	"storefront/internal/repository/product"
	"storefront/internal/seed"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(cfg.Env, cfg.LogLevel).With().Str("app", "seed").Logger()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	n, err := seed.Apply(ctx, product.NewPostgres(pool, log))
	if err != nil {
		log.Fatal().Err(err).Msg("seed apply")
	}

	log.Info().Int("products", n).Msg("seed applied")
}
