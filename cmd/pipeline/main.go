package main

import (
	"context"
	"os/signal"
	"syscall"

	workerpipeline "github.com/socialpulse/pulsex/app/pipeline"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	defer cancel()

	app := workerpipeline.Initialize(ctx)

	app.Start(ctx)
}
