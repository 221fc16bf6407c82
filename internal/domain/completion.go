package domain

import (
	"errors"
	"time"
)

// CompletionState refines an awarded trip's progress towards completion.
type CompletionState int

// List of completion states
const (
	AwaitingCarrierCompletion CompletionState = iota
	AwaitingFacilityConfirmation
	Completed
)

func (s CompletionState) String() string {
	switch s {
	case AwaitingCarrierCompletion:
		return "awaiting_carrier_completion"
	case AwaitingFacilityConfirmation:
		return "awaiting_facility_confirmation"
	case Completed:
		return "completed"
	}
	return "unknown"
}

var (
	errFacilityBeforeCarrier = errors.New("completion: facility confirmation without carrier report")
	errCompletionOrder       = errors.New("completion: transition out of order")
)

// Completion holds the completion sub-state together with the timestamps it implies.
type Completion struct {
	state      CompletionState
	carrierAt  time.Time
	facilityAt time.Time
}

// CompletionFromTimestamps rebuilds Completion from the two nullable storage columns.
func CompletionFromTimestamps(carrierAt, facilityAt *time.Time) (Completion, error) {
	switch {
	case carrierAt == nil && facilityAt == nil:
		return Completion{state: AwaitingCarrierCompletion}, nil
	case carrierAt != nil && facilityAt == nil:
		return Completion{state: AwaitingFacilityConfirmation, carrierAt: carrierAt.UTC()}, nil
	case carrierAt != nil && facilityAt != nil:
		return Completion{state: Completed, carrierAt: carrierAt.UTC(), facilityAt: facilityAt.UTC()}, nil
	}
	return Completion{}, errFacilityBeforeCarrier
}

// State returns the sub-state.
func (c Completion) State() CompletionState { return c.state }

// ReportCarrier moves AwaitingCarrierCompletion to AwaitingFacilityConfirmation.
func (c Completion) ReportCarrier(at time.Time) (Completion, error) {
	if c.state != AwaitingCarrierCompletion {
		return c, errCompletionOrder
	}
	return Completion{state: AwaitingFacilityConfirmation, carrierAt: at.UTC()}, nil
}

// ConfirmFacility moves AwaitingFacilityConfirmation to Completed.
func (c Completion) ConfirmFacility(at time.Time) (Completion, error) {
	if c.state != AwaitingFacilityConfirmation {
		return c, errCompletionOrder
	}
	return Completion{state: Completed, carrierAt: c.carrierAt, facilityAt: at.UTC()}, nil
}

// Timestamps splits Completion into the storage columns.
func (c Completion) Timestamps() (carrierAt, facilityAt *time.Time) {
	if c.state >= AwaitingFacilityConfirmation {
		at := c.carrierAt
		carrierAt = &at
	}
	if c.state == Completed {
		at := c.facilityAt
		facilityAt = &at
	}
	return carrierAt, facilityAt
}
