// Command auto-bid places at most one bid for the configured carrier account.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bedrock-cadence/transport-portal/internal/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := app.RunAutoBid(app.MustBuildContainer(ctx))
	cancel()
	os.Exit(code)
}
