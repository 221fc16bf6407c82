package domain

type (
	// TripStatus is the coarse lifecycle state of a trip.
	TripStatus string
	// AwardingPreference selects how the winning bid is chosen.
	AwardingPreference string
	// PreferenceKind is a facility's standing relationship with a carrier.
	PreferenceKind string
)

// List of trip statuses
const (
	TripBidding   TripStatus = "bidding"
	TripAwarded   TripStatus = "awarded"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

// List of awarding preferences
const (
	AwardFastestETA      AwardingPreference = "fastest_eta"
	AwardClosestToPickup AwardingPreference = "closest_to_pickup"
)

// List of preference kinds
const (
	PreferencePreferred   PreferenceKind = "preferred"
	PreferenceBlacklisted PreferenceKind = "blacklisted"
)

var allowedTripStatuses = [...]TripStatus{
	TripBidding, TripAwarded, TripCompleted, TripCancelled,
}

// Valid checks if the TripStatus is valid
func (s TripStatus) Valid() bool {
	for _, v := range allowedTripStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s TripStatus) Terminal() bool {
	return s == TripCompleted || s == TripCancelled
}

// Normalize maps unknown or empty preferences to fastest_eta.
func (p AwardingPreference) Normalize() AwardingPreference {
	if p == AwardClosestToPickup {
		return p
	}
	return AwardFastestETA
}

// Valid checks if the PreferenceKind is valid
func (k PreferenceKind) Valid() bool {
	return k == PreferencePreferred || k == PreferenceBlacklisted
}
