package intake

import (
	"time"

	"github.com/google/uuid"

	"github.com/bedrock-cadence/transport-portal/internal/service/trips"
)

// Event is a single facility trip event
type Event struct {
	Type       string
	TripUUID   uuid.UUID
	FacilityID int64
	UserID     int64
	Trip       trips.NewTrip
	Reason     string
	CreatedAt  time.Time
}
