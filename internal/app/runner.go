package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/repository"
)

var migrate = func(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return errors.New("no database pool")
	}
	return repository.Migrate(ctx, pool)
}

// Runner runs the portal API
type Runner struct {
	runFn func(*dig.Container) error
	exit  func(int)
}

// NewRunner returns a new Runner
func NewRunner() *Runner {
	return &Runner{runFn: run, exit: os.Exit}
}

// MustRun starts the HTTP servers using the provided DI container
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil {
		return
	}
	logger := loggerFrom(container)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("shutdown requested, exiting")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("startup aborted: startup timeout exceeded")
	default:
		logger.Error("run error", logx.Err(err))
		if r.exit != nil {
			r.exit(1)
		}
	}
}

type serveIn struct {
	dig.In

	Ctx     context.Context
	Logger  logx.Logger
	Pool    *pgxpool.Pool
	Server  *http.Server
	Pprof   *http.Server `name:"pprof_server"`
	Backend *notifyBackend
}

func run(container *dig.Container) error {
	return container.Invoke(serve)
}

func serve(in serveIn) error {
	defer closeResources(in.Pool, in.Backend, in.Logger)

	if err := migrate(in.Ctx, in.Pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	servers := []*http.Server{in.Server}
	if in.Pprof != nil {
		servers = append(servers, in.Pprof)
	}

	failed := make(chan error, len(servers))
	for _, srv := range servers {
		startServer(srv, in.Logger, failed)
	}

	var err error
	select {
	case <-in.Ctx.Done():
		in.Logger.Info("shutting down transport portal")
		err = in.Ctx.Err()
	case err = <-failed:
		in.Logger.Error("server stopped", logx.Err(err))
	}

	for _, srv := range servers {
		gracefulShutdown(srv, in.Logger, 15*time.Second)
	}
	return err
}

func startServer(server *http.Server, logger logx.Logger, failed chan<- error) {
	go func() {
		logger.Info("listening", logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- fmt.Errorf("listen %s: %w", server.Addr, err)
		}
	}()
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error("graceful shutdown error", logx.String("addr", srv.Addr), logx.Err(err))
	}
}

func closeResources(pool *pgxpool.Pool, backend *notifyBackend, logger logx.Logger) {
	if err := backend.Close(); err != nil {
		logger.Error("notify close error", logx.Err(err))
	}
	if pool != nil {
		pool.Close()
	}
}
