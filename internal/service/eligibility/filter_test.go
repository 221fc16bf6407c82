package eligibility_test

import (
	"context"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
	"github.com/bedrock-cadence/transport-portal/internal/service/eligibility"
	"github.com/bedrock-cadence/transport-portal/internal/testutil/memstore"
)

const facilityID = 1

func seedCarrier(s *memstore.Store, id int64, active, withUser bool) {
	s.AddCarrier(id, active)
	s.AddUser(id*100, domain.EntityCarrier, id, withUser)
}

func eligible(t *testing.T, s *memstore.Store, trip domain.Trip) []int64 {
	t.Helper()
	var out []int64
	err := s.WithTx(context.Background(), func(tx triptx.Repository) error {
		var err error
		out, err = eligibility.New().Eligible(context.Background(), tx, &trip)
		return err
	})
	require.NoError(t, err)
	return out
}

func TestFilter_ExcludesEachCategory(t *testing.T) {
	s := memstore.New()
	seedCarrier(s, 1, true, true)  // eligible
	seedCarrier(s, 2, false, true) // inactive
	seedCarrier(s, 3, true, false) // no active user
	seedCarrier(s, 4, true, true)  // blacklisted
	seedCarrier(s, 5, true, true)  // already bid
	seedCarrier(s, 6, true, true)  // locked out
	seedCarrier(s, 7, true, true)  // preferred, still eligible

	trip := s.SeedTrip(domain.Trip{FacilityID: facilityID, Timing: domain.ASAP(), BiddingClosesAt: time.Now().Add(time.Hour)})
	s.SetPreference(facilityID, 4, domain.PreferenceBlacklisted)
	s.SetPreference(facilityID, 7, domain.PreferencePreferred)
	s.SetPreference(facilityID+1, 1, domain.PreferenceBlacklisted)
	s.SeedBid(domain.Bid{TripID: trip.ID, CarrierID: 5, UserID: 500, ETA: time.Now()})
	s.AddLockout(trip.ID, 6)

	require.Equal(t, []int64{1, 7}, eligible(t, s, trip))
}

func TestFilter_Check(t *testing.T) {
	s := memstore.New()
	seedCarrier(s, 1, true, true)
	seedCarrier(s, 2, true, true)
	seedCarrier(s, 3, true, true)
	trip := s.SeedTrip(domain.Trip{FacilityID: facilityID, Timing: domain.ASAP()})
	s.SeedBid(domain.Bid{TripID: trip.ID, CarrierID: 2, UserID: 200, ETA: time.Now()})
	s.AddLockout(trip.ID, 3)

	check := func(carrierID int64) error {
		return s.WithTx(context.Background(), func(tx triptx.Repository) error {
			return eligibility.New().Check(context.Background(), tx, &trip, carrierID)
		})
	}

	require.NoError(t, check(1))
	require.ErrorIs(t, check(2), apperr.ErrConflict)
	require.ErrorIs(t, check(3), apperr.ErrForbidden)
	require.ErrorIs(t, check(99), apperr.ErrForbidden)
}

func TestFilter_MatchesDefinition(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		s := memstore.New()
		trip := s.SeedTrip(domain.Trip{FacilityID: facilityID, Timing: domain.ASAP()})

		var want []int64
		for id := int64(1); id <= 12; id++ {
			active := rnd.Intn(4) != 0
			withUser := rnd.Intn(4) != 0
			black := rnd.Intn(5) == 0
			bid := rnd.Intn(5) == 0
			locked := rnd.Intn(6) == 0

			seedCarrier(s, id, active, withUser)
			if black {
				s.SetPreference(facilityID, id, domain.PreferenceBlacklisted)
			}
			if bid {
				s.SeedBid(domain.Bid{TripID: trip.ID, CarrierID: id, UserID: id * 100, ETA: time.Now()})
			}
			if locked {
				s.AddLockout(trip.ID, id)
			}
			if active && withUser && !black && !bid && !locked {
				want = append(want, id)
			}
		}

		got := eligible(t, s, trip)
		slices.Sort(want)
		if want == nil {
			want = []int64{}
		}
		require.Equal(t, want, got, "round %d", round)
	}
}
