package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/dig"

	"github.com/bedrock-cadence/transport-portal/internal/clock"
	"github.com/bedrock-cadence/transport-portal/internal/config"
	"github.com/bedrock-cadence/transport-portal/internal/http/handlers"
	"github.com/bedrock-cadence/transport-portal/internal/http/middleware"
	"github.com/bedrock-cadence/transport-portal/internal/http/middleware/ratelimit"
	"github.com/bedrock-cadence/transport-portal/internal/http/pprofserver"
	"github.com/bedrock-cadence/transport-portal/internal/http/router"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
)

var errNoJWTSecret = errors.New("JWT_SECRET is required to serve the portal API")

type routerIn struct {
	dig.In

	Config    *config.Config
	Logger    logx.Logger
	Metrics   *middleware.HTTPMetrics
	Base      *handlers.Handlers
	Trips     *handlers.TripHandler
	Changes   *handlers.ChangeRequestHandler
	RateLimit *ratelimit.Middleware
}

func newRouter(in routerIn) (http.Handler, error) {
	if in.Config.Auth.JWTSecret == "" {
		return nil, errNoJWTSecret
	}
	return router.New(router.Deps{
		Base:          in.Base,
		Trips:         in.Trips,
		Changes:       in.Changes,
		Observability: middleware.Observability(in.Logger, in.Metrics),
		Auth:          middleware.Auth([]byte(in.Config.Auth.JWTSecret), in.Logger),
		RateLimit:     in.RateLimit.Handler(),
		Metrics:       promhttp.Handler(),
	}), nil
}

func newServer(cfg *config.Config, mux http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

type pprofOut struct {
	dig.Out
	Server *http.Server `name:"pprof_server"`
}

// newPprofServer yields a nil server when profiling is off.
func newPprofServer(cfg *config.Config, logger logx.Logger) pprofOut {
	if !cfg.Pprof.Enabled {
		return pprofOut{}
	}
	return pprofOut{Server: pprofserver.NewServer(pprofserver.Config{
		Addr: cfg.Pprof.Addr,
		User: cfg.Pprof.User,
		Pass: cfg.Pprof.Pass,
	}, logger)}
}

func registerHTTP(container *dig.Container) error {
	return provideAll(container,
		handlers.New,
		handlers.NewTripUsecase,
		handlers.NewTripHandler,
		handlers.NewChangeUsecase,
		handlers.NewChangeRequestHandler,
		newRateLimiter,
		newRateLimitMiddleware,
		newRouter,
		newServer,
		newPprofServer,
	)
}

// newRateLimiter buckets API callers per organisation; see ratelimit.clientKey.
func newRateLimiter(cfg *config.Config, clk clock.Clock, logger logx.Logger) ratelimit.Limiter {
	rl := cfg.RateLimit
	if !rl.Enabled {
		logger.Warn("api rate limiting disabled")
		return ratelimit.NopLimiter{}
	}
	logger.Info("api rate limiting enabled",
		logx.Any("rate_per_sec", rl.Rate),
		logx.Int("burst", rl.Burst),
		logx.Int("max_buckets", rl.MaxBuckets),
	)
	return ratelimit.NewTokenBucketLimiter(clk, ratelimit.Config{
		Rate:       rl.Rate,
		Burst:      rl.Burst,
		TTL:        rl.TTL,
		MaxBuckets: rl.MaxBuckets,
	})
}

type rateLimitIn struct {
	dig.In
	Logger   logx.Logger
	Rejected prometheus.Counter `name:"rate_limit_exceeded_total"`
	Limiter  ratelimit.Limiter
}

func newRateLimitMiddleware(in rateLimitIn) *ratelimit.Middleware {
	return ratelimit.New(in.Logger.With(logx.String("component", "ratelimit")), in.Rejected, in.Limiter)
}
