package trips

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
)

// PatientInput is plaintext patient data. It is encrypted before it reaches storage.
type PatientInput struct {
	FirstName string
	LastName  string
	DOB       string
	SSN       string
	Weight    string
	Height    string
}

// NewTrip is a trip request submitted by a facility.
type NewTrip struct {
	UUID                 uuid.UUID
	FacilityID           int64
	Timing               domain.Timing
	Origin               string
	Destination          string
	DistanceMiles        decimal.Decimal
	Diagnosis            string
	Equipment            string
	IsolationPrecautions string
	Patient              PatientInput
}

func (n *NewTrip) validate() error {
	n.Origin = strings.TrimSpace(n.Origin)
	n.Destination = strings.TrimSpace(n.Destination)
	switch {
	case n.FacilityID <= 0:
		return fmt.Errorf("facility is required: %w", apperr.ErrInvalid)
	case n.Origin == "" || n.Destination == "":
		return fmt.Errorf("origin and destination are required: %w", apperr.ErrInvalid)
	case n.Timing.IsZero():
		return fmt.Errorf("timing is required: %w", apperr.ErrInvalid)
	case n.DistanceMiles.IsNegative():
		return fmt.Errorf("distance must not be negative: %w", apperr.ErrInvalid)
	}
	if n.Patient.DOB != "" {
		if _, err := time.Parse(time.DateOnly, n.Patient.DOB); err != nil {
			return fmt.Errorf("dob must be YYYY-MM-DD: %w", apperr.ErrInvalid)
		}
	}
	return nil
}

// CreateTrip - stores a new trip in bidding with the configured window.
// A repeated UUID is a conflict, which makes intake redelivery harmless.
func (s *Service) CreateTrip(ctx context.Context, in NewTrip) (domain.Trip, error) {
	if err := in.validate(); err != nil {
		return domain.Trip{}, err
	}
	details, err := s.seal(in)
	if err != nil {
		return domain.Trip{}, err
	}
	if in.UUID == uuid.Nil {
		in.UUID = uuid.New()
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.clock.Now()
	trip := domain.Trip{
		UUID:            in.UUID,
		FacilityID:      in.FacilityID,
		Status:          domain.TripBidding,
		Timing:          in.Timing,
		BiddingClosesAt: now.Add(s.biddingWindow),
		Details:         details,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err = s.runner.WithTx(ctx, func(tx triptx.Repository) error {
		if err := tx.InsertTrip(ctx, &trip); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, &domain.AuditEntry{
			TripID: trip.ID, Event: domain.EventTripCreated, CreatedAt: now,
		})
	})
	if err != nil {
		return domain.Trip{}, err
	}

	s.logger.Info("trip created",
		logx.String("event", string(domain.EventTripCreated)),
		logx.Stringer("trip", trip.UUID),
		logx.Int64("facility_id", trip.FacilityID),
		logx.Time("bidding_closes_at", trip.BiddingClosesAt),
	)
	return trip, nil
}

func (s *Service) seal(in NewTrip) (domain.TripDetails, error) {
	d := domain.TripDetails{
		Origin:               in.Origin,
		Destination:          in.Destination,
		DistanceMiles:        in.DistanceMiles,
		Equipment:            strings.TrimSpace(in.Equipment),
		IsolationPrecautions: strings.TrimSpace(in.IsolationPrecautions),
	}
	fields := []struct {
		name  string
		plain string
		dst   *domain.Ciphertext
	}{
		{"diagnosis", in.Diagnosis, &d.Diagnosis},
		{"first_name", in.Patient.FirstName, &d.Patient.FirstName},
		{"last_name", in.Patient.LastName, &d.Patient.LastName},
		{"dob", in.Patient.DOB, &d.Patient.DOB},
		{"ssn", in.Patient.SSN, &d.Patient.SSN},
		{"weight", in.Patient.Weight, &d.Patient.Weight},
		{"height", in.Patient.Height, &d.Patient.Height},
	}
	for _, f := range fields {
		sealed, err := s.cipher.Encrypt(strings.TrimSpace(f.plain))
		if err != nil {
			return domain.TripDetails{}, fmt.Errorf("encrypt %s: %w", f.name, err)
		}
		*f.dst = sealed
	}
	return d, nil
}
