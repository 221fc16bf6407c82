package kafka

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/service/intake"
	"github.com/bedrock-cadence/transport-portal/internal/service/trips"
)

// TimingDTO carries exactly one of the three timing modes
type TimingDTO struct {
	ASAP          bool       `json:"asap"`
	PickupAt      *time.Time `json:"pickup_at,omitempty"`
	AppointmentAt *time.Time `json:"appointment_at,omitempty"`
}

// PatientDTO is plaintext patient data as sent by the facility system
type PatientDTO struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
	SSN       string `json:"ssn"`
	Weight    string `json:"weight"`
	Height    string `json:"height"`
}

// TripEventDTO is a data transfer object for intake.Event
type TripEventDTO struct {
	Type                 string          `json:"type"`
	TripUUID             string          `json:"trip_uuid"`
	FacilityID           int64           `json:"facility_id"`
	UserID               int64           `json:"user_id"`
	Timing               *TimingDTO      `json:"timing,omitempty"`
	Origin               string          `json:"origin"`
	Destination          string          `json:"destination"`
	DistanceMiles        decimal.Decimal `json:"distance_miles"`
	Diagnosis            string          `json:"diagnosis"`
	Equipment            string          `json:"equipment"`
	IsolationPrecautions string          `json:"isolation_precautions"`
	Patient              PatientDTO      `json:"patient"`
	Reason               string          `json:"reason"`
	CreatedAt            time.Time       `json:"created_at"`
}

// ToDomain converts TripEventDTO to intake.Event
func ToDomain(dto TripEventDTO) (intake.Event, error) {
	id, err := uuid.Parse(strings.TrimSpace(dto.TripUUID))
	if err != nil {
		return intake.Event{}, invalidField("trip_uuid", err)
	}

	ev := intake.Event{
		Type:       strings.TrimSpace(dto.Type),
		TripUUID:   id,
		FacilityID: dto.FacilityID,
		UserID:     dto.UserID,
		Reason:     strings.TrimSpace(dto.Reason),
		CreatedAt:  dto.CreatedAt,
	}
	if dto.Timing == nil {
		return ev, nil
	}

	timing, err := domain.TimingFromColumns(dto.Timing.ASAP, dto.Timing.PickupAt, dto.Timing.AppointmentAt)
	if err != nil {
		return intake.Event{}, invalidField("timing", err)
	}
	ev.Trip = trips.NewTrip{
		UUID:                 id,
		FacilityID:           dto.FacilityID,
		Timing:               timing,
		Origin:               strings.TrimSpace(dto.Origin),
		Destination:          strings.TrimSpace(dto.Destination),
		DistanceMiles:        dto.DistanceMiles,
		Diagnosis:            dto.Diagnosis,
		Equipment:            dto.Equipment,
		IsolationPrecautions: dto.IsolationPrecautions,
		Patient: trips.PatientInput{
			FirstName: dto.Patient.FirstName,
			LastName:  dto.Patient.LastName,
			DOB:       dto.Patient.DOB,
			SSN:       dto.Patient.SSN,
			Weight:    dto.Patient.Weight,
			Height:    dto.Patient.Height,
		},
	}
	return ev, nil
}
