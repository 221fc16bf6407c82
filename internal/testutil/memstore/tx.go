package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
)

type tx struct {
	st       *state
	failures map[failure]error
}

var _ triptx.Repository = (*tx)(nil)

func (t *tx) fail(op string, tripID int64) error {
	if err, ok := t.failures[failure{op: op, tripID: tripID}]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (t *tx) InsertTrip(_ context.Context, trip *domain.Trip) error {
	for _, existing := range t.st.trips {
		if existing.UUID == trip.UUID {
			return fmt.Errorf("insert trip: %w", apperr.ErrConflict)
		}
	}
	trip.ID = t.st.next()
	t.st.trips[trip.ID] = *trip
	return nil
}

func (t *tx) GetTrip(_ context.Context, id int64) (*domain.Trip, error) {
	if err := t.fail("GetTrip", id); err != nil {
		return nil, err
	}
	trip, ok := t.st.trips[id]
	if !ok {
		return nil, nil
	}
	return &trip, nil
}

func (t *tx) GetTripByUUID(_ context.Context, id uuid.UUID) (*domain.Trip, error) {
	for _, trip := range t.st.trips {
		if trip.UUID == id {
			return &trip, nil
		}
	}
	return nil, nil
}

func (t *tx) LockTrip(ctx context.Context, id int64) (*domain.Trip, error) {
	if err := t.fail("LockTrip", id); err != nil {
		return nil, err
	}
	return t.GetTrip(ctx, id)
}

func (t *tx) sortedTrips(keep func(domain.Trip) bool) []domain.Trip {
	var out []domain.Trip
	for _, trip := range t.st.trips {
		if keep(trip) {
			out = append(out, trip)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BiddingClosesAt.Equal(out[j].BiddingClosesAt) {
			return out[i].BiddingClosesAt.Before(out[j].BiddingClosesAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *tx) ListExpiredBidding(_ context.Context, now time.Time) ([]int64, error) {
	trips := t.sortedTrips(func(trip domain.Trip) bool {
		return trip.Status == domain.TripBidding && !trip.BiddingClosesAt.After(now)
	})
	ids := make([]int64, 0, len(trips))
	for _, trip := range trips {
		ids = append(ids, trip.ID)
	}
	return ids, nil
}

func (t *tx) ListOpenBidding(_ context.Context, now time.Time) ([]domain.Trip, error) {
	return t.sortedTrips(func(trip domain.Trip) bool {
		return trip.Status == domain.TripBidding && trip.BiddingClosesAt.After(now)
	}), nil
}

func (t *tx) update(op string, id int64, guard func(domain.Trip) bool, apply func(*domain.Trip)) (bool, error) {
	if err := t.fail(op, id); err != nil {
		return false, err
	}
	trip, ok := t.st.trips[id]
	if !ok || !guard(trip) {
		return false, nil
	}
	apply(&trip)
	t.st.trips[id] = trip
	return true, nil
}

func (t *tx) ExtendBidding(_ context.Context, id int64, from, to time.Time) (bool, error) {
	return t.update("ExtendBidding", id, func(trip domain.Trip) bool {
		return trip.Status == domain.TripBidding && trip.BiddingClosesAt.Equal(from)
	}, func(trip *domain.Trip) {
		trip.BiddingClosesAt = to
	})
}

func (t *tx) AwardTrip(_ context.Context, id, carrierID int64, eta, now time.Time) (bool, error) {
	return t.update("AwardTrip", id, func(trip domain.Trip) bool {
		return trip.Status == domain.TripBidding && trip.CarrierID == nil
	}, func(trip *domain.Trip) {
		trip.Status = domain.TripAwarded
		trip.CarrierID = &carrierID
		trip.AwardedETA = &eta
		trip.UpdatedAt = now
	})
}

func (t *tx) CancelTrip(_ context.Context, id int64, from []domain.TripStatus, now time.Time) (bool, error) {
	return t.update("CancelTrip", id, func(trip domain.Trip) bool {
		return slices.Contains(from, trip.Status)
	}, func(trip *domain.Trip) {
		trip.Status = domain.TripCancelled
		trip.UpdatedAt = now
	})
}

func (t *tx) RebroadcastTrip(_ context.Context, id int64, closesAt, now time.Time) (bool, error) {
	return t.update("RebroadcastTrip", id, func(trip domain.Trip) bool {
		return trip.Status == domain.TripAwarded && trip.Completion.State() == domain.AwaitingCarrierCompletion
	}, func(trip *domain.Trip) {
		trip.Status = domain.TripBidding
		trip.CarrierID = nil
		trip.AwardedETA = nil
		trip.BiddingClosesAt = closesAt
		trip.UpdatedAt = now
	})
}

func (t *tx) UpdateAwardedETA(_ context.Context, id int64, eta, now time.Time) (bool, error) {
	return t.update("UpdateAwardedETA", id, func(trip domain.Trip) bool {
		return trip.Status == domain.TripAwarded
	}, func(trip *domain.Trip) {
		trip.AwardedETA = &eta
		trip.UpdatedAt = now
	})
}

func (t *tx) UpdateTripDetails(_ context.Context, trip *domain.Trip, now time.Time) error {
	if err := t.fail("UpdateTripDetails", trip.ID); err != nil {
		return err
	}
	cur, ok := t.st.trips[trip.ID]
	if !ok {
		return fmt.Errorf("trip %d not found", trip.ID)
	}
	cur.Details = trip.Details
	cur.Timing = trip.Timing
	cur.UpdatedAt = now
	t.st.trips[trip.ID] = cur
	return nil
}

func (t *tx) MarkCarrierCompleted(_ context.Context, id int64, at time.Time) (bool, error) {
	return t.update("MarkCarrierCompleted", id, func(trip domain.Trip) bool {
		return trip.Status == domain.TripAwarded && trip.Completion.State() == domain.AwaitingCarrierCompletion
	}, func(trip *domain.Trip) {
		trip.Completion, _ = trip.Completion.ReportCarrier(at)
		trip.UpdatedAt = at
	})
}

func (t *tx) MarkFacilityCompleted(_ context.Context, id int64, at time.Time) (bool, error) {
	return t.update("MarkFacilityCompleted", id, func(trip domain.Trip) bool {
		return trip.Status == domain.TripAwarded && trip.Completion.State() == domain.AwaitingFacilityConfirmation
	}, func(trip *domain.Trip) {
		trip.Completion, _ = trip.Completion.ConfirmFacility(at)
		trip.Status = domain.TripCompleted
		trip.UpdatedAt = at
	})
}

func (t *tx) InsertBid(_ context.Context, b *domain.Bid) error {
	if err := t.fail("InsertBid", b.TripID); err != nil {
		return err
	}
	for _, existing := range t.st.bids {
		if existing.TripID == b.TripID && existing.CarrierID == b.CarrierID {
			return fmt.Errorf("insert bid: %w", apperr.ErrConflict)
		}
	}
	b.ID = t.st.next()
	t.st.bids[b.ID] = *b
	return nil
}

func (t *tx) ListBids(_ context.Context, tripID int64) ([]domain.Bid, error) {
	if err := t.fail("ListBids", tripID); err != nil {
		return nil, err
	}
	return t.st.listBids(tripID), nil
}

func (t *tx) DeleteBid(_ context.Context, tripID, carrierID int64) (bool, error) {
	for id, b := range t.st.bids {
		if b.TripID == tripID && b.CarrierID == carrierID {
			delete(t.st.bids, id)
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) DeleteBidsForTrip(_ context.Context, tripID int64) error {
	for id, b := range t.st.bids {
		if b.TripID == tripID {
			delete(t.st.bids, id)
		}
	}
	return nil
}

func (t *tx) InsertLockout(_ context.Context, tripID, carrierID int64, at time.Time) error {
	key := pairKey{tripID, carrierID}
	if _, ok := t.st.lockouts[key]; !ok {
		t.st.lockouts[key] = at
	}
	return nil
}

func (t *tx) LockedOutCarrierIDs(_ context.Context, tripID int64) ([]int64, error) {
	var out []int64
	for k := range t.st.lockouts {
		if k.a == tripID {
			out = append(out, k.b)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (t *tx) ActiveCarrierIDs(context.Context) ([]int64, error) {
	var out []int64
	for id, active := range t.st.carriers {
		if active {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (t *tx) CarrierIDsWithActiveUsers(context.Context) ([]int64, error) {
	seen := map[int64]bool{}
	for _, u := range t.st.users {
		if u.active && u.entity == domain.EntityCarrier {
			seen[u.entityID] = true
		}
	}
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

func (t *tx) ActiveUserIDs(_ context.Context, entity domain.EntityType, entityID int64) ([]int64, error) {
	var out []int64
	for id, u := range t.st.users {
		if u.active && u.entity == entity && u.entityID == entityID {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (t *tx) AwardingPreference(_ context.Context, facilityID int64) (domain.AwardingPreference, error) {
	return t.st.facilities[facilityID].Normalize(), nil
}

func (t *tx) BlacklistedCarrierIDs(_ context.Context, facilityID int64) ([]int64, error) {
	var out []int64
	for k, kind := range t.st.prefs {
		if k.a == facilityID && kind == domain.PreferenceBlacklisted {
			out = append(out, k.b)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (t *tx) UpsertPreference(_ context.Context, p domain.Preference) error {
	t.st.prefs[pairKey{p.FacilityID, p.CarrierID}] = p.Kind
	return nil
}

func (t *tx) DeletePreference(_ context.Context, facilityID, carrierID int64) error {
	delete(t.st.prefs, pairKey{facilityID, carrierID})
	return nil
}

func (t *tx) InsertChangeRequest(_ context.Context, cr *domain.ChangeRequest) error {
	if err := t.fail("InsertChangeRequest", cr.TripID); err != nil {
		return err
	}
	for _, existing := range t.st.changeRequests {
		if existing.TripID == cr.TripID && existing.Kind == cr.Kind && existing.Status == domain.ChangePending {
			return fmt.Errorf("insert change request: %w", apperr.ErrConflict)
		}
	}
	cr.ID = t.st.next()
	t.st.changeRequests[cr.ID] = *cr
	return nil
}

func (t *tx) GetChangeRequestForUpdate(_ context.Context, id int64) (*domain.ChangeRequest, error) {
	cr, ok := t.st.changeRequests[id]
	if !ok {
		return nil, nil
	}
	return &cr, nil
}

func (t *tx) ListChangeRequests(_ context.Context, tripID int64) ([]domain.ChangeRequest, error) {
	var out []domain.ChangeRequest
	for _, cr := range t.st.changeRequests {
		if cr.TripID == tripID {
			out = append(out, cr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (t *tx) ResolveChangeRequest(_ context.Context, id int64, status domain.ChangeStatus, byUserID int64, at time.Time) (bool, error) {
	cr, ok := t.st.changeRequests[id]
	if !ok || cr.Status != domain.ChangePending {
		return false, nil
	}
	if err := t.fail("ResolveChangeRequest", cr.TripID); err != nil {
		return false, err
	}
	cr.Status = status
	cr.ResolvedByUserID = &byUserID
	cr.ResolvedAt = &at
	t.st.changeRequests[id] = cr
	return true, nil
}

func (t *tx) SetFollowUp(_ context.Context, id int64, f domain.FollowUp) (bool, error) {
	cr, ok := t.st.changeRequests[id]
	if !ok || cr.Status != domain.ChangeRejected || cr.Kind != domain.ChangeETA || cr.FollowUp != nil {
		return false, nil
	}
	cr.FollowUp = &f
	t.st.changeRequests[id] = cr
	return true, nil
}

func (t *tx) RejectPendingChangeRequests(_ context.Context, tripID int64, at time.Time) (int64, error) {
	var n int64
	for id, cr := range t.st.changeRequests {
		if cr.TripID == tripID && cr.Status == domain.ChangePending {
			cr.Status = domain.ChangeRejected
			cr.ResolvedAt = &at
			t.st.changeRequests[id] = cr
			n++
		}
	}
	return n, nil
}

func (t *tx) AppendAudit(_ context.Context, e *domain.AuditEntry) error {
	if err := t.fail("AppendAudit", e.TripID); err != nil {
		return err
	}
	if e.Event == domain.EventBiddingExtended && t.hasEvent(e.TripID, e.Event) {
		return fmt.Errorf("append audit: %w", apperr.ErrConflict)
	}
	e.ID = t.st.next()
	t.st.audit = append(t.st.audit, *e)
	return nil
}

func (t *tx) AppendAuditOnce(ctx context.Context, e *domain.AuditEntry) (bool, error) {
	if t.hasEvent(e.TripID, e.Event) {
		return false, nil
	}
	if err := t.AppendAudit(ctx, e); err != nil {
		return false, err
	}
	return true, nil
}

func (t *tx) HasAuditEvent(_ context.Context, tripID int64, event domain.AuditEvent) (bool, error) {
	return t.hasEvent(tripID, event), nil
}

func (t *tx) hasEvent(tripID int64, event domain.AuditEvent) bool {
	for _, e := range t.st.audit {
		if e.TripID == tripID && e.Event == event {
			return true
		}
	}
	return false
}

func (t *tx) ListAudit(_ context.Context, tripID int64) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, e := range t.st.audit {
		if e.TripID == tripID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *tx) InsertBillingLineItem(_ context.Context, item *domain.BillingLineItem) error {
	if err := t.fail("InsertBillingLineItem", item.TripID); err != nil {
		return err
	}
	for _, existing := range t.st.billing {
		if existing.TripID == item.TripID && existing.BidID == item.BidID {
			return fmt.Errorf("insert billing line item: %w", apperr.ErrConflict)
		}
	}
	item.ID = t.st.next()
	t.st.billing = append(t.st.billing, *item)
	return nil
}
