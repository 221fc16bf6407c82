package award

import (
	"time"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
)

// SelectWinner picks the winning bid. The result depends only on the bid values and the
// preference, never on the order of bids. ok is false for an empty slice.
//
// fastest_eta picks the minimum ETA. closest_to_pickup picks the minimum |eta - pickup| and
// applies only to trips with a requested pickup time; other trips fall back to fastest_eta.
// Ties go to the earliest submitted bid, then the lowest bid id.
func SelectWinner(bids []domain.Bid, timing domain.Timing, pref domain.AwardingPreference) (winner domain.Bid, ok bool) {
	if len(bids) == 0 {
		return domain.Bid{}, false
	}

	key := fastestETA
	if pickup, hasPickup := timing.RequestedPickup(); hasPickup && pref.Normalize() == domain.AwardClosestToPickup {
		key = closestTo(pickup)
	}

	winner = bids[0]
	for _, b := range bids[1:] {
		if better(b, winner, key) {
			winner = b
		}
	}
	return winner, true
}

// rankKey maps a bid to a comparable distance; smaller wins.
type rankKey func(b domain.Bid) time.Duration

func fastestETA(b domain.Bid) time.Duration {
	return time.Duration(b.ETA.UnixNano())
}

func closestTo(pickup time.Time) rankKey {
	return func(b domain.Bid) time.Duration {
		d := b.ETA.Sub(pickup)
		if d < 0 {
			return -d
		}
		return d
	}
}

func better(a, b domain.Bid, key rankKey) bool {
	ka, kb := key(a), key(b)
	if ka != kb {
		return ka < kb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
