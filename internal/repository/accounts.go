package repository

import (
	"context"
	"fmt"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
)

// ActiveCarrierIDs - carriers whose account is active.
func (r queries) ActiveCarrierIDs(ctx context.Context) ([]int64, error) {
	return r.ids(ctx, "active carriers", `SELECT id FROM carriers WHERE active ORDER BY id`)
}

// CarrierIDsWithActiveUsers - carriers with at least one active user account.
func (r queries) CarrierIDsWithActiveUsers(ctx context.Context) ([]int64, error) {
	return r.ids(ctx, "carriers with active users", `
        SELECT DISTINCT entity_id FROM users
        WHERE entity_type = 'carrier' AND active
        ORDER BY entity_id
    `)
}

// ActiveUserIDs - active users of an entity, the recipients of its notifications.
func (r queries) ActiveUserIDs(ctx context.Context, entity domain.EntityType, entityID int64) ([]int64, error) {
	return r.ids(ctx, "active users", `
        SELECT id FROM users
        WHERE entity_type = $1 AND entity_id = $2 AND active
        ORDER BY id
    `, string(entity), entityID)
}

// AwardingPreference - the facility's configured awarding preference, fastest_eta when unset.
func (r queries) AwardingPreference(ctx context.Context, facilityID int64) (domain.AwardingPreference, error) {
	var pref string
	err := r.q.QueryRow(ctx, `SELECT awarding_preference FROM facilities WHERE id = $1`, facilityID).Scan(&pref)
	if err != nil && !IsNotFound(err) {
		return "", fmt.Errorf("awarding preference %d: %w", facilityID, err)
	}
	return domain.AwardingPreference(pref).Normalize(), nil
}

// BlacklistedCarrierIDs - carriers the facility refuses to work with.
func (r queries) BlacklistedCarrierIDs(ctx context.Context, facilityID int64) ([]int64, error) {
	return r.ids(ctx, "blacklisted carriers", `
        SELECT carrier_id FROM preferences
        WHERE facility_id = $1 AND kind = 'blacklisted'
        ORDER BY carrier_id
    `, facilityID)
}

// UpsertPreference - set the facility's preference for a carrier.
func (r queries) UpsertPreference(ctx context.Context, p domain.Preference) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO preferences (facility_id, carrier_id, kind)
        VALUES ($1, $2, $3)
        ON CONFLICT (facility_id, carrier_id) DO UPDATE SET kind = EXCLUDED.kind
    `, p.FacilityID, p.CarrierID, string(p.Kind))
	if err != nil {
		if IsMissingReference(err) {
			return fmt.Errorf("upsert preference: carrier %d: %w", p.CarrierID, apperr.ErrNotFound)
		}
		return fmt.Errorf("upsert preference %d/%d: %w", p.FacilityID, p.CarrierID, err)
	}
	return nil
}

// DeletePreference - drop the facility's preference for a carrier.
func (r queries) DeletePreference(ctx context.Context, facilityID, carrierID int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM preferences WHERE facility_id = $1 AND carrier_id = $2`, facilityID, carrierID)
	if err != nil {
		return fmt.Errorf("delete preference %d/%d: %w", facilityID, carrierID, err)
	}
	return nil
}
