package domain

import (
	"fmt"
	"time"
)

// TimingMode says which of the mutually exclusive timing fields a trip uses.
type TimingMode string

// List of timing modes
const (
	TimingASAP        TimingMode = "asap"
	TimingPickup      TimingMode = "pickup"
	TimingAppointment TimingMode = "appointment"
)

// Timing is either ASAP, a requested pickup time, or an appointment time. Never more than one.
type Timing struct {
	mode TimingMode
	at   time.Time
}

// ASAP returns an as-soon-as-possible timing.
func ASAP() Timing { return Timing{mode: TimingASAP} }

// PickupAt returns a timing with a requested pickup time.
func PickupAt(t time.Time) Timing { return Timing{mode: TimingPickup, at: t.UTC()} }

// AppointmentAt returns a timing anchored on an appointment.
func AppointmentAt(t time.Time) Timing { return Timing{mode: TimingAppointment, at: t.UTC()} }

// TimingFromColumns rebuilds Timing from the three storage columns and rejects illegal combinations.
func TimingFromColumns(asap bool, pickup, appointment *time.Time) (Timing, error) {
	set := 0
	if asap {
		set++
	}
	if pickup != nil {
		set++
	}
	if appointment != nil {
		set++
	}
	if set != 1 {
		return Timing{}, fmt.Errorf("trip timing: expected exactly one mode, got %d", set)
	}
	switch {
	case asap:
		return ASAP(), nil
	case pickup != nil:
		return PickupAt(*pickup), nil
	default:
		return AppointmentAt(*appointment), nil
	}
}

// Mode returns the timing mode.
func (t Timing) Mode() TimingMode { return t.mode }

// IsZero reports an unset timing.
func (t Timing) IsZero() bool { return t.mode == "" }

// RequestedPickup returns the pickup time when the mode is TimingPickup.
func (t Timing) RequestedPickup() (time.Time, bool) {
	if t.mode != TimingPickup {
		return time.Time{}, false
	}
	return t.at, true
}

// Appointment returns the appointment time when the mode is TimingAppointment.
func (t Timing) Appointment() (time.Time, bool) {
	if t.mode != TimingAppointment {
		return time.Time{}, false
	}
	return t.at, true
}

// Columns splits Timing into the storage columns.
func (t Timing) Columns() (asap bool, pickup, appointment *time.Time) {
	switch t.mode {
	case TimingASAP:
		return true, nil, nil
	case TimingPickup:
		at := t.at
		return false, &at, nil
	case TimingAppointment:
		at := t.at
		return false, nil, &at
	}
	return false, nil, nil
}
