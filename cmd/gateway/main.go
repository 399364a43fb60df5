package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/tollgate/internal/gateway/app"
)

func main() {
	cfg, err := app.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("gateway: invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := app.New(cfg)
	if err != nil {
		log.Fatalf("gateway: %v", err)
	}
	if err := gw.Run(ctx); err != nil {
		stop()
		log.Fatalf("gateway: %v", err)
	}
}
