package domain

import "time"

// AuditEvent names a lifecycle event in the trip history.
type AuditEvent string

// List of audit events
const (
	EventTripCreated       AuditEvent = "trip_created"
	EventBidPlaced         AuditEvent = "bid_placed"
	EventBidRetracted      AuditEvent = "bid_retracted"
	EventBiddingExtended   AuditEvent = "bidding_extended"
	EventBiddingExpired    AuditEvent = "bidding_expired"
	EventTripAwarded       AuditEvent = "trip_awarded"
	EventTripCancelled     AuditEvent = "trip_cancelled"
	EventTripRebroadcast   AuditEvent = "trip_rebroadcast"
	EventCarrierCompleted  AuditEvent = "carrier_completed"
	EventFacilityConfirmed AuditEvent = "facility_confirmed"
	EventChangeRequested   AuditEvent = "change_requested"
	EventChangeAccepted    AuditEvent = "change_accepted"
	EventChangeRejected    AuditEvent = "change_rejected"
)

// AuditEntry is one append-only history record. ActorUserID is nil for system actions.
type AuditEntry struct {
	ID          int64
	TripID      int64
	ActorUserID *int64
	Event       AuditEvent
	Detail      string
	CreatedAt   time.Time
}
