package handlers

import (
	"slices"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/service/changereq"
)

func bidToResponse(b domain.Bid) bidDTO {
	return bidDTO{
		ID:        b.ID,
		CarrierID: b.CarrierID,
		ETA:       b.ETA,
		CreatedAt: b.CreatedAt,
	}
}

func tripToState(t domain.Trip) tripStateDTO {
	out := tripStateDTO{
		UUID:       t.UUID,
		Status:     t.Status,
		CarrierID:  t.CarrierID,
		AwardedETA: t.AwardedETA,
	}
	if t.Status == domain.TripAwarded || t.Status == domain.TripCompleted {
		out.Completion = t.Completion.State().String()
		out.CarrierAt, out.FacilityAt = t.Completion.Timestamps()
	}
	return out
}

func changeToResponse(cr domain.ChangeRequest) changeRequestDTO {
	fields := make([]domain.DetailField, 0, len(cr.Diff))
	for f := range cr.Diff {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	return changeRequestDTO{
		ID:         cr.ID,
		Kind:       cr.Kind,
		Status:     cr.Status,
		Fields:     fields,
		FollowUp:   cr.FollowUp,
		CreatedAt:  cr.CreatedAt,
		ResolvedAt: cr.ResolvedAt,
	}
}

func resultToResponse(res changereq.Result) decisionDTO {
	return decisionDTO{
		Request: changeToResponse(res.Request),
		Trip:    tripToState(res.Trip),
	}
}

func auditToResponse(e domain.AuditEntry) auditDTO {
	return auditDTO{
		Event:       e.Event,
		ActorUserID: e.ActorUserID,
		Detail:      e.Detail,
		CreatedAt:   e.CreatedAt,
	}
}
