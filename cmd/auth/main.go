package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/tollgate/internal/auth/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(app.LoadConfig())
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	if err := a.Run(ctx); err != nil {
		stop()
		log.Fatalf("auth: %v", err)
	}
}
