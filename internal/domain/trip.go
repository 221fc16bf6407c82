package domain

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ciphertext is an encrypted PHI value. The core stores and forwards it without looking inside.
type Ciphertext []byte

// Encode returns the base64 form used inside change-request diffs.
func (c Ciphertext) Encode() string { return base64.StdEncoding.EncodeToString(c) }

// DecodeCiphertext parses the base64 form produced by Encode.
func DecodeCiphertext(s string) (Ciphertext, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return Ciphertext(b), nil
}

// Patient carries encrypted patient identity and body measurements.
type Patient struct {
	FirstName Ciphertext
	LastName  Ciphertext
	DOB       Ciphertext
	SSN       Ciphertext
	Weight    Ciphertext
	Height    Ciphertext
}

// TripDetails is the clinical and route payload of a trip.
type TripDetails struct {
	Origin               string
	Destination          string
	DistanceMiles        decimal.Decimal
	Diagnosis            Ciphertext
	Equipment            string
	IsolationPrecautions string
	Patient              Patient
}

// Trip is a patient-transport request moving through bidding, award and completion.
type Trip struct {
	ID              int64
	UUID            uuid.UUID
	FacilityID      int64
	CarrierID       *int64
	Status          TripStatus
	Timing          Timing
	BiddingClosesAt time.Time
	AwardedETA      *time.Time
	Completion      Completion
	Details         TripDetails
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AwardedTo reports whether the trip is currently held by the carrier.
func (t *Trip) AwardedTo(carrierID int64) bool {
	if t.CarrierID == nil || *t.CarrierID != carrierID {
		return false
	}
	return t.Status == TripAwarded || t.Status == TripCompleted
}

// OwnedBy reports whether the facility created the trip.
func (t *Trip) OwnedBy(facilityID int64) bool {
	return t.FacilityID == facilityID
}

// Bid is a carrier's offer to perform a trip with the given ETA.
type Bid struct {
	ID        int64
	TripID    int64
	CarrierID int64
	UserID    int64
	ETA       time.Time
	CreatedAt time.Time
}

// Preference is a facility's standing relationship with a carrier.
type Preference struct {
	FacilityID int64
	CarrierID  int64
	Kind       PreferenceKind
}

// BillingLineItem is the charge recorded when a trip is awarded. A trip that is
// rebroadcast and awarded again carries one item per winning bid.
type BillingLineItem struct {
	ID          int64
	TripID      int64
	BidID       int64
	FacilityID  int64
	CarrierID   int64
	Amount      decimal.Decimal
	Description string
	CreatedAt   time.Time
}
