package notify

import (
	"context"
	"time"

	"github.com/bedrock-cadence/transport-portal/internal/logx"
)

type counter interface {
	Inc()
}

// RetryConfig describes how Retrying retries a failed send.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Retrying retries transient dispatcher failures with exponential backoff.
type Retrying struct {
	next    Dispatcher
	logger  logx.Logger
	retries counter
	cfg     RetryConfig
}

// NewRetrying wraps next. A nil next yields nil.
func NewRetrying(next Dispatcher, logger logx.Logger, retries counter, cfg RetryConfig) *Retrying {
	if next == nil {
		return nil
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Retrying{next: next, logger: logger, retries: retries, cfg: cfg}
}

// Send implements Dispatcher.
func (r *Retrying) Send(ctx context.Context, n Notification) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err := r.next.Send(ctx, n)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == r.cfg.MaxAttempts || IsPermanent(err) {
			break
		}

		delay := backoff(r.cfg.BaseDelay, r.cfg.MaxDelay, attempt)
		if r.retries != nil {
			r.retries.Inc()
		}
		r.logger.Warn("notification retry",
			logx.String("event", string(n.Event)),
			logx.Int64("user_id", n.UserID),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		// ждем, но не дольше контекста
		if !sleepWithContext(ctx, delay) {
			break
		}
	}
	return lastErr
}

// backoff doubles base per attempt, capped at max.
func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d > max || d <= 0 {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
