package disclosure

import (
	"fmt"
	"sort"
	"time"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/phi"
)

// ChangeFieldView is one proposed edit. Withheld fields carry no values.
type ChangeFieldView struct {
	Field    domain.DetailField `json:"field"`
	Old      string             `json:"old,omitempty"`
	New      string             `json:"new,omitempty"`
	Withheld bool               `json:"withheld,omitempty"`
}

// ChangeRequestView is a change request projected for one viewer.
type ChangeRequestView struct {
	ID          int64               `json:"id"`
	Kind        domain.ChangeKind   `json:"kind"`
	Status      domain.ChangeStatus `json:"status"`
	RequestedBy int64               `json:"requested_by"`
	FollowUp    *domain.FollowUp    `json:"follow_up,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	ResolvedAt  *time.Time          `json:"resolved_at,omitempty"`
	Changes     []ChangeFieldView   `json:"changes"`
}

// guards maps a diff field to the trip field whose visibility governs it.
var guards = map[domain.DetailField]FieldSet{
	domain.FieldAwardedETA:           Timing,
	domain.FieldAppointmentAt:        Timing,
	domain.FieldEquipment:            Equipment,
	domain.FieldIsolationPrecautions: Isolation,
	domain.FieldPatientFirstName:     PatientFirstName,
	domain.FieldPatientLastName:      PatientLastName,
	domain.FieldPatientWeight:        PatientWeight,
	domain.FieldPatientHeight:        PatientHeight,
}

// ProjectChange builds the viewer's view of a change request on t. Values of a field the
// viewer may not see on the trip are withheld, and PHI is decrypted only when visible.
func ProjectChange(t *domain.Trip, cr domain.ChangeRequest, viewer domain.AuthContext, d phi.Decrypter) (ChangeRequestView, error) {
	fields := VisibleFields(t, viewer)
	if fields.Empty() {
		return ChangeRequestView{}, apperr.ErrForbidden
	}

	v := ChangeRequestView{
		ID:          cr.ID,
		Kind:        cr.Kind,
		Status:      cr.Status,
		RequestedBy: cr.RequestedByUserID,
		FollowUp:    cr.FollowUp,
		CreatedAt:   cr.CreatedAt,
		ResolvedAt:  cr.ResolvedAt,
		Changes:     make([]ChangeFieldView, 0, len(cr.Diff)),
	}

	o := opener{d: d}
	for field, change := range cr.Diff {
		guard, known := guards[field]
		if !known || !fields.Has(guard) {
			v.Changes = append(v.Changes, ChangeFieldView{Field: field, Withheld: true})
			continue
		}
		fv := ChangeFieldView{Field: field, Old: change.Old, New: change.New}
		if field.PHI() {
			fv.Old = o.open(string(field), decode(&o, field, change.Old))
			fv.New = o.open(string(field), decode(&o, field, change.New))
		}
		v.Changes = append(v.Changes, fv)
	}
	if o.err != nil {
		return ChangeRequestView{}, o.err
	}
	sort.Slice(v.Changes, func(i, j int) bool { return v.Changes[i].Field < v.Changes[j].Field })
	return v, nil
}

func decode(o *opener, field domain.DetailField, encoded string) domain.Ciphertext {
	if o.err != nil || encoded == "" {
		return nil
	}
	c, err := domain.DecodeCiphertext(encoded)
	if err != nil {
		o.err = fmt.Errorf("decode %s: %w", field, err)
		return nil
	}
	return c
}
