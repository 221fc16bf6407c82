package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/service/changereq"
	"github.com/bedrock-cadence/transport-portal/internal/service/disclosure"
	"github.com/bedrock-cadence/transport-portal/internal/service/trips"
)

type tripUsecase interface {
	View(ctx context.Context, viewer domain.AuthContext, tripID uuid.UUID) (disclosure.TripView, error)
	Board(ctx context.Context, viewer domain.AuthContext) ([]disclosure.TripView, error)
	PlaceBid(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID, eta time.Time) (domain.Bid, error)
	RetractBid(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID) error
	Cancel(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID, reason string) (domain.Trip, error)
	CarrierComplete(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID) (domain.Trip, error)
	FacilityConfirm(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID) (domain.Trip, error)
	SetPreference(ctx context.Context, actor domain.AuthContext, carrierID int64, kind domain.PreferenceKind) error
	DeletePreference(ctx context.Context, actor domain.AuthContext, carrierID int64) error
	History(ctx context.Context, viewer domain.AuthContext, tripID uuid.UUID) ([]domain.AuditEntry, error)
}

// NewTripUsecase wires a trips.Service into a tripUsecase.
func NewTripUsecase(svc *trips.Service) tripUsecase {
	return svc
}

type changeUsecase interface {
	RequestETAChange(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID, eta time.Time) (*domain.ChangeRequest, error)
	RequestDetailsChange(ctx context.Context, actor domain.AuthContext, tripID uuid.UUID, changes map[domain.DetailField]string) (*domain.ChangeRequest, error)
	DecideETAChange(ctx context.Context, actor domain.AuthContext, requestID int64, accept bool) (changereq.Result, error)
	DecideDetailsChange(ctx context.Context, actor domain.AuthContext, requestID int64, accept bool) (changereq.Result, error)
	ResolveRejectedETAChange(ctx context.Context, actor domain.AuthContext, requestID int64, followUp domain.FollowUp) (changereq.Result, error)
	ListForTrip(ctx context.Context, viewer domain.AuthContext, tripID uuid.UUID) ([]disclosure.ChangeRequestView, error)
}

// NewChangeUsecase wires a changereq.Arbiter into a changeUsecase.
func NewChangeUsecase(a *changereq.Arbiter) changeUsecase {
	return a
}
