package main

import (
	"context"
	"log"

	"cv-review-backend/internal/bootstrap"
	"cv-review-backend/internal/shared/config"
	"cv-review-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	// Background sweep so a crashed review cannot stay in processing forever.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.Sweeper.Run(ctx, cfg.SweepLease/2)

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
