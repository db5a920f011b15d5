package main

import (
	"context"
	"flag"
	"os"

	"storefront-api/internal/config"
	"storefront-api/internal/db"
	"storefront-api/internal/logger"
	"storefront-api/internal/seed"
)

func main() {
	var admin seed.Admin
	flag.StringVar(&admin.Email, "admin-email", os.Getenv("SEED_ADMIN_EMAIL"), "email of the admin account to create (optional)")
	flag.StringVar(&admin.Password, "admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "password of the admin account")
	flag.Parse()

	ctx := context.Background()
	log := logger.New(logger.Options{ServiceName: "seed", Format: "console"})

	cfg, err := config.LoadTooling()
	if err != nil {
		log.Fatal(ctx, "load config", err)
	}

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		log.Fatal(ctx, "connect db", err)
	}
	defer pool.Close()

	if err := seed.Apply(ctx, pool, admin); err != nil {
		log.Fatal(ctx, "seed apply", err)
	}

	log.Info(ctx, "seed applied")
}
