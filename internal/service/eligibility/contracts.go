package eligibility

import (
	"context"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
)

// Source is the read side of the trip store the filter needs.
type Source interface {
	ActiveCarrierIDs(ctx context.Context) ([]int64, error)
	CarrierIDsWithActiveUsers(ctx context.Context) ([]int64, error)
	BlacklistedCarrierIDs(ctx context.Context, facilityID int64) ([]int64, error)
	LockedOutCarrierIDs(ctx context.Context, tripID int64) ([]int64, error)
	ListBids(ctx context.Context, tripID int64) ([]domain.Bid, error)
}
