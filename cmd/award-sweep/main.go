// Command award-sweep closes every bidding trip whose window has passed. Run it from cron.
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

	code := app.RunAwardSweep(app.MustBuildContainer(ctx))
	cancel()
	os.Exit(code)
}
