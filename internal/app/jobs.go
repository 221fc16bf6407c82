package app

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"github.com/bedrock-cadence/transport-portal/internal/clock"
	"github.com/bedrock-cadence/transport-portal/internal/config"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/service/autobid"
	"github.com/bedrock-cadence/transport-portal/internal/service/award"
	"github.com/bedrock-cadence/transport-portal/internal/service/trips"
)

type autobidIn struct {
	dig.In

	Config *config.Config
	Logger logx.Logger
	Clock  clock.Clock
	Trips  *trips.Service
	Placed prometheus.Counter `name:"auto_bids_placed_total"`
}

func newAutoBidRunner(in autobidIn) (*autobid.Runner, error) {
	return autobid.NewRunner(in.Trips, autobid.Config{
		CarrierID: in.Config.AutoBid.CarrierID,
		UserID:    in.Config.AutoBid.UserID,
		ETAOffset: in.Config.AutoBid.ETAOffset,
	}, in.Clock, in.Placed, in.Logger)
}

func registerJobs(container *dig.Container) error {
	return provideAll(container, newAutoBidRunner)
}

// jobIn is what every one-shot job needs besides its own runner.
type jobIn struct {
	dig.In

	Ctx     context.Context
	Logger  logx.Logger
	Pool    *pgxpool.Pool
	Backend *notifyBackend
}

func (j jobIn) close() {
	if err := j.Backend.Close(); err != nil {
		j.Logger.Error("notify close error", logx.Err(err))
	}
	if j.Pool != nil {
		j.Pool.Close()
	}
}

// RunAwardSweep runs one award sweep and returns the process exit code.
func RunAwardSweep(container *dig.Container) int {
	return exitCode(container, "award sweep", container.Invoke(func(in jobIn, engine *award.Engine) error {
		defer in.close()
		_, err := engine.Sweep(in.Ctx)
		return err
	}))
}

// RunAutoBid places at most one automated bid and returns the process exit code.
func RunAutoBid(container *dig.Container) int {
	return exitCode(container, "auto bid", container.Invoke(func(in jobIn, r *autobid.Runner) error {
		defer in.close()
		_, err := r.Run(in.Ctx)
		return err
	}))
}

func exitCode(container *dig.Container, job string, err error) int {
	if err == nil {
		return 0
	}
	logger := loggerFrom(container)
	if errors.Is(err, context.Canceled) {
		logger.Warn("job interrupted", logx.String("job", job))
		return 1
	}
	logger.Error("job failed", logx.String("job", job), logx.Err(err))
	return 1
}

// loggerFrom falls back to a fresh logger when the container cannot build one.
func loggerFrom(container *dig.Container) logx.Logger {
	var logger logx.Logger
	if err := container.Invoke(func(l logx.Logger) { logger = l }); err != nil || logger == nil {
		return NewLogger()
	}
	return logger
}
