package main

import (
	"context"
	"flag"
	"os"
	"time"

	"storefront-api/internal/config"
	"storefront-api/internal/db"
	"storefront-api/internal/importer"
	"storefront-api/internal/logger"
	"storefront-api/internal/repository/category"
	"storefront-api/internal/repository/product"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to product CSV (name,description,price,stock,category,images)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	log := logger.New(logger.Options{ServiceName: "importer", Format: "console"})

	cfg, err := config.LoadTooling()
	if err != nil {
		log.Fatal(ctx, "load config", err)
	}

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		log.Fatal(ctx, "connect db", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal(ctx, "open file", err)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, product.NewPostgres(pool, log), category.NewPostgres(pool))

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.Fatal(log.WithField(ctx, "imported", count), "import failed", err)
	}

	log.Info(log.WithFields(ctx, map[string]any{
		"imported": count,
		"duration": time.Since(start).Truncate(time.Millisecond).String(),
	}), "import finished")
}
