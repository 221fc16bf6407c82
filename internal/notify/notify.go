//go:generate mockgen -destination=notifymock/dispatcher.go -package=notifymock github.com/bedrock-cadence/transport-portal/internal/notify Dispatcher

// Package notify delivers human-facing notifications about trip transitions.
// Delivery is best effort: a failed notification never undoes a committed transition.
package notify

import (
	"context"
	"errors"
	"time"
)

// Event is the notification type.
type Event string

// List of notification events
const (
	EventTripAwarded       Event = "trip_awarded"
	EventBiddingExtended   Event = "bidding_extended"
	EventTripCancelled     Event = "trip_cancelled"
	EventTripRebroadcast   Event = "trip_rebroadcast"
	EventChangeRequested   Event = "change_requested"
	EventChangeAccepted    Event = "change_accepted"
	EventChangeRejected    Event = "change_rejected"
	EventCarrierCompleted  Event = "carrier_completed"
	EventFacilityConfirmed Event = "facility_confirmed"
)

// Notification is addressed to one user. Message and Link never carry PHI.
type Notification struct {
	UserID  int64  `json:"user_id"`
	Event   Event  `json:"event"`
	Message string `json:"message"`
	Link    string `json:"link"`
}

// Dispatcher sends a notification to its recipient.
type Dispatcher interface {
	Send(ctx context.Context, n Notification) error
}

// envelope is the wire form published to brokers.
type envelope struct {
	Notification
	SentAt time.Time `json:"sent_at"`
}

// PermanentError marks a failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e PermanentError) Unwrap() error { return e.Err }

// Permanent returns a permanent error.
func Permanent(err error) error {
	return PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe PermanentError
	return errors.As(err, &pe)
}

type nop struct{}

// Nop returns a Dispatcher that drops everything.
func Nop() Dispatcher { return nop{} }

func (nop) Send(context.Context, Notification) error { return nil }
