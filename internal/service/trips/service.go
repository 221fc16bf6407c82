// Package trips implements the request-driven trip operations: intake, bidding, cancellation,
// completion, facility preferences and disclosed reads.
package trips

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/clock"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/notify"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
	"github.com/bedrock-cadence/transport-portal/internal/service/eligibility"
)

// DefaultBiddingWindow is how long a new trip accepts bids when no window is configured.
const DefaultBiddingWindow = time.Hour

// Config tunes the service.
type Config struct {
	BiddingWindow    time.Duration
	OperationTimeout time.Duration
}

// Service - service for trip operations.
type Service struct {
	runner           triptx.Runner
	filter           eligibility.Filter
	cipher           cipher
	notifier         notifier
	clock            clock.Clock
	biddingWindow    time.Duration
	operationTimeout time.Duration
	logger           logx.Logger
}

// NewService - creates a new trips Service.
func NewService(r triptx.Runner, c cipher, n notifier, clk clock.Clock, cfg Config, logger logx.Logger) *Service {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 3 * time.Second
	}
	if cfg.BiddingWindow <= 0 {
		cfg.BiddingWindow = DefaultBiddingWindow
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Service{
		runner:           r,
		filter:           eligibility.New(),
		cipher:           c,
		notifier:         n,
		clock:            clk,
		biddingWindow:    cfg.BiddingWindow,
		operationTimeout: cfg.OperationTimeout,
		logger:           logger,
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

func (s *Service) deliver(ctx context.Context, notes []notify.Notification) {
	if s.notifier != nil && len(notes) > 0 {
		s.notifier.Deliver(ctx, notes...)
	}
}

func lockTrip(ctx context.Context, tx triptx.Repository, id uuid.UUID) (*domain.Trip, error) {
	trip, err := tx.GetTripByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, apperr.ErrNotFound
	}
	return tx.LockTrip(ctx, trip.ID)
}
