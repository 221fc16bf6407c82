package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
)

type placeBidRequest struct {
	ETA time.Time `json:"eta"`
}

type bidDTO struct {
	ID        int64     `json:"id"`
	CarrierID int64     `json:"carrier_id"`
	ETA       time.Time `json:"eta"`
	CreatedAt time.Time `json:"created_at"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// tripStateDTO is the reply to lifecycle transitions. It carries no trip details.
type tripStateDTO struct {
	UUID       uuid.UUID         `json:"uuid"`
	Status     domain.TripStatus `json:"status"`
	CarrierID  *int64            `json:"carrier_id,omitempty"`
	AwardedETA *time.Time        `json:"awarded_eta,omitempty"`
	Completion string            `json:"completion,omitempty"`
	CarrierAt  *time.Time        `json:"carrier_completed_at,omitempty"`
	FacilityAt *time.Time        `json:"facility_confirmed_at,omitempty"`
}

type etaChangeRequest struct {
	ETA time.Time `json:"eta"`
}

type detailsChangeRequest struct {
	Changes map[domain.DetailField]string `json:"changes"`
}

type decisionRequest struct {
	Kind   domain.ChangeKind `json:"kind"`
	Accept *bool             `json:"accept"`
}

type followUpRequest struct {
	FollowUp domain.FollowUp `json:"follow_up"`
}

// changeRequestDTO omits the diff values; PHI entries are ciphertext and stay server side.
type changeRequestDTO struct {
	ID         int64                `json:"id"`
	Kind       domain.ChangeKind    `json:"kind"`
	Status     domain.ChangeStatus  `json:"status"`
	Fields     []domain.DetailField `json:"fields"`
	FollowUp   *domain.FollowUp     `json:"follow_up,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	ResolvedAt *time.Time           `json:"resolved_at,omitempty"`
}

type decisionDTO struct {
	Request changeRequestDTO `json:"request"`
	Trip    tripStateDTO     `json:"trip"`
}

type preferenceRequest struct {
	Kind domain.PreferenceKind `json:"kind"`
}

type auditDTO struct {
	Event       domain.AuditEvent `json:"event"`
	ActorUserID *int64            `json:"actor_user_id,omitempty"`
	Detail      string            `json:"detail,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
