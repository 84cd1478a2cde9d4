package main

// One-shot lease sweep, intended for cron or manual runs:
//   go run ./cmd/sweeper

import (
	"context"
	"log"
	"os"

	"cv-review-backend/internal/shared/config"
	"cv-review-backend/internal/shared/storage/db"
	"cv-review-backend/internal/uploads"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	sweeper := &uploads.Sweeper{
		Repo:  &uploads.PGRepo{DB: sqlDB},
		Lease: cfg.SweepLease,
	}
	swept, err := sweeper.RunOnce(ctx)
	if err != nil {
		log.Printf("sweep failed: %v", err)
		os.Exit(1)
	}
	log.Printf("swept %d stale uploads", swept)
}
