package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"github.com/bedrock-cadence/transport-portal/internal/config"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/service/intake"
	"github.com/bedrock-cadence/transport-portal/internal/service/trips"
	"github.com/bedrock-cadence/transport-portal/internal/transport/kafka"
)

var errNoConsumer = errors.New("kafka consumer is nil: KAFKA_BROKERS, KAFKA_INTAKE_TOPIC and KAFKA_GROUP_ID are required")

type processorIn struct {
	dig.In

	Logger  logx.Logger
	Trips   *trips.Service
	Results *prometheus.CounterVec `name:"intake_events_total"`
}

func newIntakeProcessor(in processorIn) *intake.Processor {
	return intake.NewProcessor(in.Trips, in.Results, in.Logger)
}

func newIntakeConsumer(cfg *config.Config, logger logx.Logger, p *intake.Processor) (*kafka.Consumer, error) {
	return kafka.NewConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.IntakeTopic, p.Handle)
}

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		newIntakeProcessor,
		newIntakeConsumer,
	)
}

// WorkerRunner runs the intake consumer
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun consumes intake events until the container context is done
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

func workerRun(
	ctx context.Context,
	pool *pgxpool.Pool,
	logger logx.Logger,
	consumer *kafka.Consumer,
	backend *notifyBackend,
) error {
	if consumer == nil {
		return errNoConsumer
	}
	defer closeWorker(pool, logger, consumer, backend)

	if err := migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	logger.Info("intake worker started")
	return consumer.Run(ctx)
}

func closeWorker(pool *pgxpool.Pool, logger logx.Logger, consumer *kafka.Consumer, backend *notifyBackend) {
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("kafka close error", logx.Err(err))
		}
	}
	if err := backend.Close(); err != nil {
		logger.Error("notify close error", logx.Err(err))
	}
	if pool != nil {
		pool.Close()
	}
}
