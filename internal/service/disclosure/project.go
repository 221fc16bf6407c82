package disclosure

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/phi"
)

// TimingView is the requested timing of a trip.
type TimingView struct {
	Mode domain.TimingMode `json:"mode"`
	At   *time.Time        `json:"at,omitempty"`
}

// PatientView holds the decrypted patient fields a viewer may see.
type PatientView struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	BirthYear string `json:"birth_year,omitempty"`
	DOB       string `json:"dob,omitempty"`
	Weight    string `json:"weight,omitempty"`
	Height    string `json:"height,omitempty"`
}

// TripView is a trip projected for one viewer. Hidden fields are left empty.
type TripView struct {
	UUID                 uuid.UUID         `json:"uuid"`
	Status               domain.TripStatus `json:"status"`
	BiddingClosesAt      time.Time         `json:"bidding_closes_at"`
	AwardedETA           *time.Time        `json:"awarded_eta,omitempty"`
	Origin               string            `json:"origin,omitempty"`
	Destination          string            `json:"destination,omitempty"`
	DistanceMiles        *decimal.Decimal  `json:"distance_miles,omitempty"`
	Timing               *TimingView       `json:"timing,omitempty"`
	Diagnosis            string            `json:"diagnosis,omitempty"`
	Equipment            string            `json:"equipment,omitempty"`
	IsolationPrecautions string            `json:"isolation_precautions,omitempty"`
	Patient              *PatientView      `json:"patient,omitempty"`

	Fields FieldSet    `json:"-"`
	Viewer ViewerClass `json:"-"`
}

// Project builds the viewer's view of t, decrypting only permitted fields.
// A viewer with no visible fields gets ErrForbidden.
func Project(t *domain.Trip, viewer domain.AuthContext, d phi.Decrypter) (TripView, error) {
	class := Classify(t, viewer)
	fields := VisibleFields(t, viewer)
	if fields.Empty() {
		return TripView{}, apperr.ErrForbidden
	}

	v := TripView{
		UUID:            t.UUID,
		Status:          t.Status,
		BiddingClosesAt: t.BiddingClosesAt,
		AwardedETA:      t.AwardedETA,
		Fields:          fields,
		Viewer:          class,
	}
	if fields.Has(Route) {
		v.Origin = t.Details.Origin
		v.Destination = t.Details.Destination
	}
	if fields.Has(Distance) {
		miles := t.Details.DistanceMiles
		v.DistanceMiles = &miles
	}
	if fields.Has(Timing) {
		v.Timing = timingView(t.Timing)
	}
	if fields.Has(Equipment) {
		v.Equipment = t.Details.Equipment
	}
	if fields.Has(Isolation) {
		v.IsolationPrecautions = t.Details.IsolationPrecautions
	}

	o := opener{d: d}
	if fields.Has(Diagnosis) {
		v.Diagnosis = o.open("diagnosis", t.Details.Diagnosis)
	}

	var p PatientView
	pt := t.Details.Patient
	if fields.Has(PatientFirstName) {
		p.FirstName = o.open("first_name", pt.FirstName)
	}
	if fields.Has(PatientLastName) {
		p.LastName = o.open("last_name", pt.LastName)
	}
	switch {
	case fields.Has(PatientDOB):
		p.DOB = o.open("dob", pt.DOB)
	case fields.Has(PatientBirthYear):
		p.BirthYear = birthYear(o.open("dob", pt.DOB))
	}
	if fields.Has(PatientWeight) {
		p.Weight = o.open("weight", pt.Weight)
	}
	if fields.Has(PatientHeight) {
		p.Height = o.open("height", pt.Height)
	}
	if o.err != nil {
		return TripView{}, o.err
	}
	if p != (PatientView{}) {
		v.Patient = &p
	}
	return v, nil
}

// opener keeps the first decryption error. The error names the field, never the value.
type opener struct {
	d   phi.Decrypter
	err error
}

func (o *opener) open(field string, c domain.Ciphertext) string {
	if o.err != nil || len(c) == 0 {
		return ""
	}
	plain, err := o.d.Decrypt(c)
	if err != nil {
		o.err = fmt.Errorf("decrypt %s: %w", field, err)
		return ""
	}
	return plain
}

func timingView(t domain.Timing) *TimingView {
	v := &TimingView{Mode: t.Mode()}
	if at, ok := t.RequestedPickup(); ok {
		v.At = &at
	} else if at, ok := t.Appointment(); ok {
		v.At = &at
	}
	return v
}

func birthYear(dob string) string {
	if dob == "" {
		return ""
	}
	d, err := time.Parse(time.DateOnly, dob)
	if err != nil {
		return ""
	}
	return d.Format("2006")
}
