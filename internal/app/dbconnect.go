package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/repository"
)

var newPool = repository.NewPool

const (
	dbAttemptTimeout = 3 * time.Second
	dbMaxBackoff     = 8
)

// connectDbWithRetry keeps dialing Postgres until it answers, the attempts run
// out, or ctx ends. The pause doubles after every failure up to 8*delay.
func connectDbWithRetry(ctx context.Context, logger logx.Logger, dsn string, attempts int, delay time.Duration) (*pgxpool.Pool, error) {
	target := dbTarget(dsn)
	pause := delay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		pool, err := dialOnce(ctx, dsn)
		if err == nil {
			logger.Info("db connected", logx.String("target", target), logx.Int("attempt", attempt))
			return pool, nil
		}
		lastErr = err
		logger.Warn("db connect failed",
			logx.String("target", target),
			logx.Int("attempt", attempt),
			logx.Int("attempts", attempts),
			logx.Duration("next_in", pause),
			logx.Err(err),
		)
		if attempt == attempts {
			break
		}

		t := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("db connect to %s: %w", target, ctx.Err())
		case <-t.C:
		}
		if pause < dbMaxBackoff*delay {
			pause *= 2
		}
	}
	return nil, fmt.Errorf("db connect to %s: gave up after %d attempts: %w", target, attempts, lastErr)
}

func dialOnce(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, dbAttemptTimeout)
	defer cancel()
	return newPool(attemptCtx, dsn)
}

// dbTarget renders host/database without credentials.
func dbTarget(dsn string) string {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return "unparsed dsn"
	}
	return fmt.Sprintf("%s:%d/%s", cfg.ConnConfig.Host, cfg.ConnConfig.Port, cfg.ConnConfig.Database)
}
