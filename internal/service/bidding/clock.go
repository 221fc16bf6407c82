// Package bidding holds the pure time predicates of the bidding window.
package bidding

import (
	"time"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
)

const (
	// ExtensionWindow is how far a zero-bid window is pushed, once.
	ExtensionWindow = 20 * time.Minute
	// RebroadcastWindow is the window given to a trip returned to bidding after award.
	RebroadcastWindow = 2 * time.Hour
)

// IsOpen reports whether carriers may still bid.
func IsOpen(t *domain.Trip, now time.Time) bool {
	return t.Status == domain.TripBidding && now.Before(t.BiddingClosesAt)
}

// IsExpired reports whether the window has closed and the trip awaits a sweep decision.
func IsExpired(t *domain.Trip, now time.Time) bool {
	return t.Status == domain.TripBidding && !now.Before(t.BiddingClosesAt)
}

// NextExtensionDeadline is the deadline after a zero-bid extension. It is measured from the
// original deadline, but never lands at or before now when the sweep ran late.
func NextExtensionDeadline(closesAt, now time.Time) time.Time {
	next := closesAt.Add(ExtensionWindow)
	if !next.After(now) {
		return now.Add(ExtensionWindow)
	}
	return next
}

// RebroadcastDeadline is the deadline of a trip returned to bidding at now.
func RebroadcastDeadline(now time.Time) time.Time {
	return now.Add(RebroadcastWindow)
}
