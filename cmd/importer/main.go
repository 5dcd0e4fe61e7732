package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/importer"
	"storefront/internal/logger"
	"storefront/internal/repository/product"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to catalog CSV (id,key,name,description,price,type,material,popularity,images)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(cfg.Env, cfg.LogLevel).With().Str("app", "importer").Logger()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("open file")
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, product.NewPostgres(pool, log), log)

	start := time.Now()
	sum, err := imp.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}

	fmt.Printf("Imported %d products (%d new, %d updated) in %s\n", sum.Total(), sum.Created, sum.Updated, time.Since(start).Truncate(time.Millisecond))
}
