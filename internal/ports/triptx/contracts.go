package triptx

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
)

// Trips covers reads and conditional transitions of the trips table.
// Methods returning bool report whether the conditional update matched a row.
type Trips interface {
	InsertTrip(ctx context.Context, t *domain.Trip) error
	GetTrip(ctx context.Context, id int64) (*domain.Trip, error)
	GetTripByUUID(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
	LockTrip(ctx context.Context, id int64) (*domain.Trip, error)
	ListExpiredBidding(ctx context.Context, now time.Time) ([]int64, error)
	ListOpenBidding(ctx context.Context, now time.Time) ([]domain.Trip, error)

	ExtendBidding(ctx context.Context, id int64, from, to time.Time) (bool, error)
	AwardTrip(ctx context.Context, id, carrierID int64, eta, now time.Time) (bool, error)
	CancelTrip(ctx context.Context, id int64, from []domain.TripStatus, now time.Time) (bool, error)
	RebroadcastTrip(ctx context.Context, id int64, closesAt, now time.Time) (bool, error)
	UpdateAwardedETA(ctx context.Context, id int64, eta, now time.Time) (bool, error)
	UpdateTripDetails(ctx context.Context, t *domain.Trip, now time.Time) error
	MarkCarrierCompleted(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkFacilityCompleted(ctx context.Context, id int64, at time.Time) (bool, error)
}

// Bids covers bids together with the per-trip lockouts.
type Bids interface {
	InsertBid(ctx context.Context, b *domain.Bid) error
	ListBids(ctx context.Context, tripID int64) ([]domain.Bid, error)
	DeleteBid(ctx context.Context, tripID, carrierID int64) (bool, error)
	DeleteBidsForTrip(ctx context.Context, tripID int64) error

	InsertLockout(ctx context.Context, tripID, carrierID int64, at time.Time) error
	LockedOutCarrierIDs(ctx context.Context, tripID int64) ([]int64, error)
}

// Accounts covers carriers, users and facility settings.
type Accounts interface {
	ActiveCarrierIDs(ctx context.Context) ([]int64, error)
	CarrierIDsWithActiveUsers(ctx context.Context) ([]int64, error)
	ActiveUserIDs(ctx context.Context, entity domain.EntityType, entityID int64) ([]int64, error)
	AwardingPreference(ctx context.Context, facilityID int64) (domain.AwardingPreference, error)
	BlacklistedCarrierIDs(ctx context.Context, facilityID int64) ([]int64, error)
	UpsertPreference(ctx context.Context, p domain.Preference) error
	DeletePreference(ctx context.Context, facilityID, carrierID int64) error
}

// ChangeRequests covers post-award change proposals.
type ChangeRequests interface {
	InsertChangeRequest(ctx context.Context, cr *domain.ChangeRequest) error
	GetChangeRequestForUpdate(ctx context.Context, id int64) (*domain.ChangeRequest, error)
	ListChangeRequests(ctx context.Context, tripID int64) ([]domain.ChangeRequest, error)
	ResolveChangeRequest(ctx context.Context, id int64, status domain.ChangeStatus, byUserID int64, at time.Time) (bool, error)
	SetFollowUp(ctx context.Context, id int64, f domain.FollowUp) (bool, error)
	RejectPendingChangeRequests(ctx context.Context, tripID int64, at time.Time) (int64, error)
}

// Ledger covers the append-only audit log and billing line items.
type Ledger interface {
	AppendAudit(ctx context.Context, e *domain.AuditEntry) error
	AppendAuditOnce(ctx context.Context, e *domain.AuditEntry) (bool, error)
	HasAuditEvent(ctx context.Context, tripID int64, event domain.AuditEvent) (bool, error)
	ListAudit(ctx context.Context, tripID int64) ([]domain.AuditEntry, error)
	InsertBillingLineItem(ctx context.Context, item *domain.BillingLineItem) error
}

// Repository is the trip store as seen inside a transaction.
type Repository interface {
	Trips
	Bids
	Accounts
	ChangeRequests
	Ledger
}

// Runner is a transaction runner
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
