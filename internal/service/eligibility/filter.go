// Package eligibility decides which carriers may place a first bid on a trip.
// Every caller that lists or selects candidate carriers goes through Filter.
package eligibility

import (
	"context"
	"fmt"
	"slices"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
)

// Reason explains why a carrier is not eligible.
type Reason string

// List of reasons
const (
	ReasonEligible    Reason = ""
	ReasonInactive    Reason = "inactive"
	ReasonNoUser      Reason = "no_active_user"
	ReasonBlacklisted Reason = "blacklisted"
	ReasonAlreadyBid  Reason = "already_bid"
	ReasonLockedOut   Reason = "locked_out"
)

// Snapshot is the computed eligibility of every known carrier for one trip.
type Snapshot struct {
	eligible []int64
	reasons  map[int64]Reason
}

// Eligible returns the eligible carrier ids in ascending order.
func (s Snapshot) Eligible() []int64 { return slices.Clone(s.eligible) }

// Reason returns why the carrier is excluded, or ReasonEligible.
func (s Snapshot) Reason(carrierID int64) Reason {
	if r, ok := s.reasons[carrierID]; ok {
		return r
	}
	if slices.Contains(s.eligible, carrierID) {
		return ReasonEligible
	}
	return ReasonInactive
}

// Contains reports whether the carrier may bid.
func (s Snapshot) Contains(carrierID int64) bool {
	_, found := slices.BinarySearch(s.eligible, carrierID)
	return found
}

// Filter computes eligibility against a Source.
type Filter struct{}

// New returns a Filter.
func New() Filter { return Filter{} }

// Compute evaluates
// active carriers - blacklisted by the facility - carriers with a bid - locked out - carriers without an active user.
func (Filter) Compute(ctx context.Context, src Source, trip *domain.Trip) (Snapshot, error) {
	active, err := src.ActiveCarrierIDs(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("eligibility: %w", err)
	}
	withUsers, err := src.CarrierIDsWithActiveUsers(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("eligibility: %w", err)
	}
	blacklisted, err := src.BlacklistedCarrierIDs(ctx, trip.FacilityID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("eligibility: %w", err)
	}
	locked, err := src.LockedOutCarrierIDs(ctx, trip.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("eligibility: %w", err)
	}
	bids, err := src.ListBids(ctx, trip.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("eligibility: %w", err)
	}

	reasons := make(map[int64]Reason)
	exclude := func(ids []int64, r Reason) {
		for _, id := range ids {
			if _, seen := reasons[id]; !seen {
				reasons[id] = r
			}
		}
	}
	bidders := make([]int64, 0, len(bids))
	for _, b := range bids {
		bidders = append(bidders, b.CarrierID)
	}
	exclude(bidders, ReasonAlreadyBid)
	exclude(locked, ReasonLockedOut)
	exclude(blacklisted, ReasonBlacklisted)

	hasUser := make(map[int64]bool, len(withUsers))
	for _, id := range withUsers {
		hasUser[id] = true
	}

	eligible := make([]int64, 0, len(active))
	for _, id := range active {
		if _, excluded := reasons[id]; excluded {
			continue
		}
		if !hasUser[id] {
			reasons[id] = ReasonNoUser
			continue
		}
		eligible = append(eligible, id)
	}
	slices.Sort(eligible)

	return Snapshot{eligible: eligible, reasons: reasons}, nil
}

// Eligible returns the carriers allowed to place a first bid on the trip.
func (f Filter) Eligible(ctx context.Context, src Source, trip *domain.Trip) ([]int64, error) {
	snap, err := f.Compute(ctx, src, trip)
	if err != nil {
		return nil, err
	}
	return snap.Eligible(), nil
}

// Check returns nil when the carrier may bid, ErrConflict when it already has a bid,
// and ErrForbidden for every other exclusion.
func (f Filter) Check(ctx context.Context, src Source, trip *domain.Trip, carrierID int64) error {
	snap, err := f.Compute(ctx, src, trip)
	if err != nil {
		return err
	}
	if snap.Contains(carrierID) {
		return nil
	}
	if snap.Reason(carrierID) == ReasonAlreadyBid {
		return fmt.Errorf("bid already exists: %w", apperr.ErrConflict)
	}
	return apperr.ErrForbidden
}
