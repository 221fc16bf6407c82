// Package memstore is an in-memory trip store for service tests. It mirrors the
// unique constraints and conditional updates of the Postgres repository.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
)

type pairKey struct{ a, b int64 }

type user struct {
	entity   domain.EntityType
	entityID int64
	active   bool
}

type state struct {
	seq            int64
	trips          map[int64]domain.Trip
	bids           map[int64]domain.Bid
	lockouts       map[pairKey]time.Time
	prefs          map[pairKey]domain.PreferenceKind
	changeRequests map[int64]domain.ChangeRequest
	audit          []domain.AuditEntry
	billing        []domain.BillingLineItem
	carriers       map[int64]bool
	users          map[int64]user
	facilities     map[int64]domain.AwardingPreference
}

func newState() *state {
	return &state{
		trips:          map[int64]domain.Trip{},
		bids:           map[int64]domain.Bid{},
		lockouts:       map[pairKey]time.Time{},
		prefs:          map[pairKey]domain.PreferenceKind{},
		changeRequests: map[int64]domain.ChangeRequest{},
		carriers:       map[int64]bool{},
		users:          map[int64]user{},
		facilities:     map[int64]domain.AwardingPreference{},
	}
}

func (s *state) clone() *state {
	return &state{
		seq:            s.seq,
		trips:          clonemap(s.trips),
		bids:           clonemap(s.bids),
		lockouts:       clonemap(s.lockouts),
		prefs:          clonemap(s.prefs),
		changeRequests: clonemap(s.changeRequests),
		audit:          slices.Clone(s.audit),
		billing:        slices.Clone(s.billing),
		carriers:       clonemap(s.carriers),
		users:          clonemap(s.users),
		facilities:     clonemap(s.facilities),
	}
}

func clonemap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) next() int64 {
	s.seq++
	return s.seq
}

type failure struct {
	op     string
	tripID int64
}

// Store implements triptx.Runner. Transactions are serialized and roll back on error.
type Store struct {
	mu       sync.Mutex
	st       *state
	failures map[failure]error
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState(), failures: map[failure]error{}}
}

var _ triptx.Runner = (*Store)(nil)

// WithTx runs fn against a copy of the state and publishes the copy only if fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(tx triptx.Repository) error) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrTransaction, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&tx{st: work, failures: s.failures}); err != nil {
		if apperr.IsDomain(err) {
			return err
		}
		return fmt.Errorf("%w: %w", apperr.ErrTransaction, err)
	}
	s.st = work
	return nil
}

// FailFor makes the named repository method fail with err whenever it touches tripID.
func (s *Store) FailFor(op string, tripID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[failure{op: op, tripID: tripID}] = err
}

// AddFacility registers a facility with its awarding preference.
func (s *Store) AddFacility(id int64, pref domain.AwardingPreference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.facilities[id] = pref
}

// AddCarrier registers a carrier.
func (s *Store) AddCarrier(id int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.carriers[id] = active
}

// AddUser registers a user account belonging to an entity.
func (s *Store) AddUser(id int64, entity domain.EntityType, entityID int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[id] = user{entity: entity, entityID: entityID, active: active}
}

// SetPreference records a facility preference outside any transaction.
func (s *Store) SetPreference(facilityID, carrierID int64, kind domain.PreferenceKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.prefs[pairKey{facilityID, carrierID}] = kind
}

// AddLockout records a lockout outside any transaction.
func (s *Store) AddLockout(tripID, carrierID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.lockouts[pairKey{tripID, carrierID}] = time.Time{}
}

// SeedTrip stores t, assigning an id and uuid when missing, and returns the stored copy.
func (s *Store) SeedTrip(t domain.Trip) domain.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.st.next()
	}
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.Status == "" {
		t.Status = domain.TripBidding
	}
	s.st.trips[t.ID] = t
	return t
}

// SeedBid stores b as if it had been placed earlier and returns the stored copy.
func (s *Store) SeedBid(b domain.Bid) domain.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.st.next()
	s.st.bids[b.ID] = b
	return b
}

// Trip returns the committed state of a trip.
func (s *Store) Trip(id int64) domain.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.trips[id]
}

// Bids returns committed bids of a trip in placement order.
func (s *Store) Bids(tripID int64) []domain.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listBids(tripID)
}

// Audit returns committed audit entries of a trip.
func (s *Store) Audit(tripID int64) []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range s.st.audit {
		if e.TripID == tripID {
			out = append(out, e)
		}
	}
	return out
}

// Billing returns all committed billing line items.
func (s *Store) Billing() []domain.BillingLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.billing)
}

// ChangeRequest returns a committed change request.
func (s *Store) ChangeRequest(id int64) domain.ChangeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.changeRequests[id]
}

// Locked reports a committed lockout.
func (s *Store) Locked(tripID, carrierID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.st.lockouts[pairKey{tripID, carrierID}]
	return ok
}

// Preference returns the committed preference kind, if any.
func (s *Store) Preference(facilityID, carrierID int64) (domain.PreferenceKind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.st.prefs[pairKey{facilityID, carrierID}]
	return k, ok
}

func (s *state) listBids(tripID int64) []domain.Bid {
	var out []domain.Bid
	for _, b := range s.bids {
		if b.TripID == tripID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
