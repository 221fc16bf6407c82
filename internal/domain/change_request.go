package domain

import "time"

type (
	// ChangeKind is the type of post-award change proposal.
	ChangeKind string
	// ChangeStatus is the decision state of a change request.
	ChangeStatus string
	// FollowUp is the facility's choice after rejecting an ETA change.
	FollowUp string
	// DetailField names a trip field that a details change may touch.
	DetailField string
)

// List of change kinds
const (
	ChangeETA     ChangeKind = "eta_change"
	ChangeDetails ChangeKind = "details_change"
)

// List of change statuses
const (
	ChangePending  ChangeStatus = "pending"
	ChangeAccepted ChangeStatus = "accepted"
	ChangeRejected ChangeStatus = "rejected"
)

// List of follow-ups
const (
	FollowUpRebroadcast FollowUp = "rebroadcast"
	FollowUpCancel      FollowUp = "cancel"
)

// Fields accepted in details changes. Route fields are deliberately absent.
const (
	FieldAwardedETA           DetailField = "awarded_eta"
	FieldPatientFirstName     DetailField = "patient_first_name"
	FieldPatientLastName      DetailField = "patient_last_name"
	FieldPatientWeight        DetailField = "patient_weight"
	FieldPatientHeight        DetailField = "patient_height"
	FieldEquipment            DetailField = "equipment"
	FieldIsolationPrecautions DetailField = "isolation_precautions"
	FieldAppointmentAt        DetailField = "appointment_at"
)

var detailsWhitelist = map[DetailField]bool{
	FieldPatientFirstName:     true,
	FieldPatientLastName:      true,
	FieldPatientWeight:        true,
	FieldPatientHeight:        true,
	FieldEquipment:            true,
	FieldIsolationPrecautions: true,
	FieldAppointmentAt:        true,
}

// DetailsChangeAllowed reports whether a details change may touch the field.
func (f DetailField) DetailsChangeAllowed() bool { return detailsWhitelist[f] }

// PHI reports whether values of the field are stored as ciphertext.
func (f DetailField) PHI() bool {
	switch f {
	case FieldPatientFirstName, FieldPatientLastName, FieldPatientWeight, FieldPatientHeight:
		return true
	}
	return false
}

// Valid checks if the FollowUp is valid
func (f FollowUp) Valid() bool {
	return f == FollowUpRebroadcast || f == FollowUpCancel
}

// FieldChange is one old/new pair in a proposed diff. PHI values are base64 ciphertext.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// ChangeRequest is a post-award proposal that the counterparty must accept or reject.
type ChangeRequest struct {
	ID                int64
	TripID            int64
	Kind              ChangeKind
	RequestedByUserID int64
	Diff              map[DetailField]FieldChange
	Status            ChangeStatus
	ResolvedByUserID  *int64
	ResolvedAt        *time.Time
	FollowUp          *FollowUp
	CreatedAt         time.Time
}
