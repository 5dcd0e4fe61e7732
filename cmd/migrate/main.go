package main

import (
	"context"
	"flag"

	"github.com/joho/godotenv"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logger"
	"storefront/internal/migrate"
)

func main() {
	down := flag.Int("down", 0, "Number of migrations to roll back instead of applying")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(cfg.Env, cfg.LogLevel).With().Str("app", "migrate").Logger()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	if *down > 0 {
		version, err := migrate.Rollback(ctx, pool, *down)
		if err != nil {
			log.Fatal().Err(err).Msg("roll back migrations")
		}
		log.Info().Uint("version", version).Int("steps", *down).Msg("migrations rolled back")
		return
	}

	if err := migrate.Apply(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}
	version, err := migrate.Version(ctx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("read schema version")
	}
	log.Info().Uint("version", version).Msg("migrations applied")
}
