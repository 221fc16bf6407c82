package trips

import (
	"context"
	"fmt"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
)

func facilityOf(actor domain.AuthContext) (int64, error) {
	if actor.EntityType != domain.EntityFacility || actor.EntityID <= 0 {
		return 0, apperr.ErrForbidden
	}
	return actor.EntityID, nil
}

// SetPreference - the caller's facility marks a carrier preferred or blacklisted.
// Blacklisting affects eligibility of trips from then on; existing bids stay.
func (s *Service) SetPreference(ctx context.Context, actor domain.AuthContext, carrierID int64, kind domain.PreferenceKind) error {
	facilityID, err := facilityOf(actor)
	if err != nil {
		return err
	}
	if carrierID <= 0 || !kind.Valid() {
		return fmt.Errorf("carrier and kind are required: %w", apperr.ErrInvalid)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = s.runner.WithTx(ctx, func(tx triptx.Repository) error {
		return tx.UpsertPreference(ctx, domain.Preference{FacilityID: facilityID, CarrierID: carrierID, Kind: kind})
	})
	if err != nil {
		return err
	}

	s.logger.Info("preference set",
		logx.Int64("facility_id", facilityID),
		logx.Int64("carrier_id", carrierID),
		logx.String("kind", string(kind)),
	)
	return nil
}

// DeletePreference - removes the facility's preference for a carrier. Missing preferences are ignored.
func (s *Service) DeletePreference(ctx context.Context, actor domain.AuthContext, carrierID int64) error {
	facilityID, err := facilityOf(actor)
	if err != nil {
		return err
	}
	if carrierID <= 0 {
		return fmt.Errorf("carrier is required: %w", apperr.ErrInvalid)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = s.runner.WithTx(ctx, func(tx triptx.Repository) error {
		return tx.DeletePreference(ctx, facilityID, carrierID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("preference deleted",
		logx.Int64("facility_id", facilityID),
		logx.Int64("carrier_id", carrierID),
	)
	return nil
}
