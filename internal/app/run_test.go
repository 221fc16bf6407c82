package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/testutil/testlog"
)

func withStubMigrate(t *testing.T, fn func(context.Context, *pgxpool.Pool) error) {
	t.Helper()
	orig := migrate
	migrate = fn
	t.Cleanup(func() { migrate = orig })
}

func noMigrate(context.Context, *pgxpool.Pool) error { return nil }

func loggerContainer(t *testing.T, logger logx.Logger) *dig.Container {
	t.Helper()
	c := dig.New()
	require.NoError(t, c.Provide(func() logx.Logger { return logger }))
	return c
}

func TestRunner_MustRun_ShutdownRequested(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	r := &Runner{runFn: func(*dig.Container) error { return context.Canceled }}

	r.MustRun(loggerContainer(t, rec.Logger()))

	_, ok := rec.Find("shutdown requested, exiting")
	require.True(t, ok)
}

func TestRunner_MustRun_StartupTimeout(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	r := &Runner{runFn: func(*dig.Container) error { return context.DeadlineExceeded }}

	r.MustRun(loggerContainer(t, rec.Logger()))

	_, ok := rec.Find("startup aborted: startup timeout exceeded")
	require.True(t, ok)
}

func TestRunner_MustRun_ExitsOnError(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	code := -1
	r := &Runner{
		runFn: func(*dig.Container) error { return errors.New("port in use") },
		exit:  func(c int) { code = c },
	}

	r.MustRun(loggerContainer(t, rec.Logger()))

	require.Equal(t, 1, code)
	e, ok := rec.Find("run error")
	require.True(t, ok)
	require.Equal(t, "error", e.Level)
}

func TestNewRunner_DefaultFields(t *testing.T) {
	t.Parallel()

	r := NewRunner()
	require.NotNil(t, r)
	require.NotNil(t, r.runFn)
	require.NotNil(t, r.exit)
	require.Equal(t, fmt.Sprintf("%p", run), fmt.Sprintf("%p", r.runFn))
}

func TestGracefulShutdown_DoesNotPanic(t *testing.T) {
	t.Parallel()

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}

	require.NotPanics(t, func() {
		gracefulShutdown(srv, logx.Nop(), 100*time.Millisecond)
	})
}

func serveContainer(t *testing.T, ctx context.Context, srv *http.Server) *dig.Container {
	t.Helper()

	c := dig.New()
	require.NoError(t, c.Provide(func() context.Context { return ctx }))
	require.NoError(t, c.Provide(func() logx.Logger { return logx.Nop() }))
	require.NoError(t, c.Provide(func() *pgxpool.Pool { return nil }))
	require.NoError(t, c.Provide(func() *http.Server { return srv }))
	require.NoError(t, c.Provide(func() pprofOut { return pprofOut{} }))
	require.NoError(t, c.Provide(func() *notifyBackend { return &notifyBackend{} }))
	return c
}

// Not parallel: swaps the package migrate func.
func TestRun_StopsOnContextCancel(t *testing.T) {
	withStubMigrate(t, noMigrate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := serveContainer(t, ctx, &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()})

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := run(c)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_ListenErrorStopsRun(t *testing.T) {
	withStubMigrate(t, noMigrate)

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	c := serveContainer(t, context.Background(), &http.Server{Addr: busy.Addr().String(), Handler: http.NewServeMux()})

	err = run(c)
	require.Error(t, err)
	require.Contains(t, err.Error(), "listen")
}

func TestRun_MigrateFailureAborts(t *testing.T) {
	boom := errors.New("schema broken")
	withStubMigrate(t, func(context.Context, *pgxpool.Pool) error { return boom })

	c := serveContainer(t, context.Background(), &http.Server{Addr: "127.0.0.1:0"})

	err := run(c)
	require.ErrorIs(t, err, boom)
}
