package main

import (
	"context"
	"flag"

	"storefront-api/internal/config"
	"storefront-api/internal/db"
	"storefront-api/internal/logger"
	"storefront-api/internal/migrate"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of applying")
	flag.Parse()

	ctx := context.Background()
	log := logger.New(logger.Options{ServiceName: "migrate", Format: "console"})

	cfg, err := config.LoadTooling()
	if err != nil {
		log.Fatal(ctx, "load config", err)
	}

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		log.Fatal(ctx, "connect db", err)
	}
	defer pool.Close()

	if *down > 0 {
		if err := migrate.Rollback(ctx, pool, *down); err != nil {
			log.Fatal(ctx, "roll back migrations", err)
		}
		log.Info(log.WithField(ctx, "steps", *down), "migrations rolled back")
		return
	}

	if err := migrate.Apply(ctx, pool); err != nil {
		log.Fatal(ctx, "apply migrations", err)
	}

	log.Info(ctx, "migrations applied")
}
