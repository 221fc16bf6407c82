// Package disclosure decides which trip fields a viewer may see and projects trips accordingly.
package disclosure

import (
	"strings"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
)

// ViewerClass is the relationship between a viewer and a trip.
type ViewerClass int

// List of viewer classes
const (
	ViewerNone ViewerClass = iota
	ViewerOwningFacility
	ViewerBiddingCarrier
	ViewerAwardedCarrier
	ViewerAdmin
)

func (c ViewerClass) String() string {
	switch c {
	case ViewerOwningFacility:
		return "owning_facility"
	case ViewerBiddingCarrier:
		return "bidding_carrier"
	case ViewerAwardedCarrier:
		return "awarded_carrier"
	case ViewerAdmin:
		return "admin"
	}
	return "none"
}

// FieldSet is a set of disclosable trip fields.
type FieldSet uint32

// List of disclosable fields
const (
	Route FieldSet = 1 << iota
	Distance
	Timing
	Diagnosis
	Equipment
	Isolation
	PatientFirstName
	PatientLastName
	PatientBirthYear
	PatientDOB
	PatientWeight
	PatientHeight
	PatientSSN
)

// Identity is every field that identifies a patient.
const Identity = PatientFirstName | PatientLastName | PatientBirthYear | PatientDOB | PatientSSN

const logistics = Route | Distance | Timing | Diagnosis | Equipment | Isolation

var byClass = map[ViewerClass]FieldSet{
	ViewerOwningFacility: logistics | PatientLastName | PatientBirthYear,
	ViewerBiddingCarrier: logistics | PatientWeight | PatientHeight,
	ViewerAwardedCarrier: logistics | PatientWeight | PatientHeight | PatientFirstName | PatientLastName | PatientDOB,
	ViewerAdmin:          logistics,
}

var names = []struct {
	f    FieldSet
	name string
}{
	{Route, "route"}, {Distance, "distance"}, {Timing, "timing"}, {Diagnosis, "diagnosis"},
	{Equipment, "equipment"}, {Isolation, "isolation_precautions"},
	{PatientFirstName, "patient_first_name"}, {PatientLastName, "patient_last_name"},
	{PatientBirthYear, "patient_birth_year"}, {PatientDOB, "patient_dob"},
	{PatientWeight, "patient_weight"}, {PatientHeight, "patient_height"}, {PatientSSN, "patient_ssn"},
}

// Has reports whether every field of f is in s.
func (s FieldSet) Has(f FieldSet) bool { return s&f == f }

// Empty reports whether nothing is visible.
func (s FieldSet) Empty() bool { return s == 0 }

func (s FieldSet) String() string {
	var out []string
	for _, n := range names {
		if s.Has(n.f) {
			out = append(out, n.name)
		}
	}
	return strings.Join(out, ",")
}

// Classify resolves the viewer's relationship to the trip.
func Classify(t *domain.Trip, viewer domain.AuthContext) ViewerClass {
	if !viewer.Valid() {
		return ViewerNone
	}
	switch {
	case viewer.IsAdmin():
		return ViewerAdmin
	case viewer.IsFacility(t.FacilityID):
		return ViewerOwningFacility
	case viewer.IsCarrier() && t.AwardedTo(viewer.EntityID):
		return ViewerAwardedCarrier
	case viewer.IsCarrier() && t.Status == domain.TripBidding:
		return ViewerBiddingCarrier
	}
	return ViewerNone
}

// VisibleFields returns the fields of t the viewer may see. SSN is never in the result.
func VisibleFields(t *domain.Trip, viewer domain.AuthContext) FieldSet {
	return byClass[Classify(t, viewer)] &^ PatientSSN
}
