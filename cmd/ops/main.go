package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/socialpulse/pulsex/app/ops"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	defer cancel()

	app := ops.Initialize(ctx)

	if err := ops.NewServer(app); err != nil {
		app.Logger.Fatal("Unable to initialize server")
	}

	app.Start(ctx)
}
