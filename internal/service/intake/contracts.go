//go:generate mockgen -source=contracts.go -destination=intake_mocks_test.go -package=intake_test

package intake

import (
	"context"

	"github.com/google/uuid"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/service/trips"
)

// TripPort abstracts the subset of trip operations
// needed by the intake Processor when handling facility events
type TripPort interface {
	CreateTrip(ctx context.Context, in trips.NewTrip) (domain.Trip, error)
	Cancel(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID, reason string) (domain.Trip, error)
}
