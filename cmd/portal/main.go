package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/bedrock-cadence/transport-portal/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	container := app.MustBuildContainer(ctx)
	app.NewRunner().MustRun(container)
}
