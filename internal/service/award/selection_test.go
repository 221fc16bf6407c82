package award

import (
	"math/rand"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
)

var day = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func exampleBids() []domain.Bid {
	return []domain.Bid{
		{ID: 1, CarrierID: 10, ETA: at(15, 10), CreatedAt: at(9, 0)},
		{ID: 2, CarrierID: 11, ETA: at(14, 30), CreatedAt: at(9, 5)},
		{ID: 3, CarrierID: 12, ETA: at(14, 0), CreatedAt: at(9, 10)},
	}
}

func TestSelectWinner_Examples(t *testing.T) {
	cases := []struct {
		name    string
		timing  domain.Timing
		pref    domain.AwardingPreference
		wantETA time.Time
	}{
		{"fastest eta", domain.PickupAt(at(14, 40)), domain.AwardFastestETA, at(14, 0)},
		{"closest to pickup", domain.PickupAt(at(14, 40)), domain.AwardClosestToPickup, at(14, 30)},
		{"closest falls back for asap", domain.ASAP(), domain.AwardClosestToPickup, at(14, 0)},
		{"closest falls back for appointment", domain.AppointmentAt(at(14, 40)), domain.AwardClosestToPickup, at(14, 0)},
		{"unknown preference is fastest", domain.PickupAt(at(14, 40)), domain.AwardingPreference("cheapest"), at(14, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			winner, ok := SelectWinner(exampleBids(), tc.timing, tc.pref)
			check.True(t, ok)
			check.Equal(t, tc.wantETA, winner.ETA)
		})
	}
}

func TestSelectWinner_TieBreaks(t *testing.T) {
	bids := []domain.Bid{
		{ID: 5, CarrierID: 1, ETA: at(14, 0), CreatedAt: at(9, 30)},
		{ID: 9, CarrierID: 2, ETA: at(14, 0), CreatedAt: at(9, 10)},
		{ID: 4, CarrierID: 3, ETA: at(14, 0), CreatedAt: at(9, 10)},
	}
	winner, _ := SelectWinner(bids, domain.ASAP(), domain.AwardFastestETA)
	check.Equal(t, int64(4), winner.ID)

	// 14:30 and 14:50 are both 10 minutes from 14:40
	closest := []domain.Bid{
		{ID: 1, CarrierID: 1, ETA: at(14, 50), CreatedAt: at(9, 0)},
		{ID: 2, CarrierID: 2, ETA: at(14, 30), CreatedAt: at(9, 1)},
	}
	winner, _ = SelectWinner(closest, domain.PickupAt(at(14, 40)), domain.AwardClosestToPickup)
	check.Equal(t, int64(1), winner.ID)
}

func TestSelectWinner_OrderIndependent(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	bids := []domain.Bid{
		{ID: 1, ETA: at(14, 0), CreatedAt: at(9, 3)},
		{ID: 2, ETA: at(14, 0), CreatedAt: at(9, 1)},
		{ID: 3, ETA: at(14, 20), CreatedAt: at(9, 0)},
		{ID: 4, ETA: at(15, 0), CreatedAt: at(9, 2)},
		{ID: 5, ETA: at(14, 0), CreatedAt: at(9, 1)},
	}
	for _, pref := range []domain.AwardingPreference{domain.AwardFastestETA, domain.AwardClosestToPickup} {
		want, _ := SelectWinner(bids, domain.PickupAt(at(14, 10)), pref)
		for i := 0; i < 25; i++ {
			shuffled := append([]domain.Bid(nil), bids...)
			rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
			got, _ := SelectWinner(shuffled, domain.PickupAt(at(14, 10)), pref)
			check.Equal(t, want.ID, got.ID)
		}
	}
}

func TestSelectWinner_Empty(t *testing.T) {
	_, ok := SelectWinner(nil, domain.ASAP(), domain.AwardFastestETA)
	check.False(t, ok)
}
