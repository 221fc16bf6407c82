package award_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/clock"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/notify"
	"github.com/bedrock-cadence/transport-portal/internal/ports/triptx"
	"github.com/bedrock-cadence/transport-portal/internal/service/award"
	"github.com/bedrock-cadence/transport-portal/internal/service/lifecycle"
	"github.com/bedrock-cadence/transport-portal/internal/testutil/memstore"
	"github.com/bedrock-cadence/transport-portal/internal/testutil/testlog"
)

const (
	facilityID   = int64(1)
	facilityUser = int64(900)
)

var closeAt = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2026, 6, 1, h, m, 0, 0, time.UTC)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Deliver(_ context.Context, ns ...notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, ns...)
}

func (r *recordingNotifier) To(userID int64) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Event
	for _, n := range r.sent {
		if n.UserID == userID {
			out = append(out, n.Event)
		}
	}
	return out
}

type fixture struct {
	store    *memstore.Store
	notifier *recordingNotifier
	outcomes *prometheus.CounterVec
	logs     *testlog.Recorder
}

func newFixture(pref domain.AwardingPreference) *fixture {
	s := memstore.New()
	s.AddFacility(facilityID, pref)
	s.AddUser(facilityUser, domain.EntityFacility, facilityID, true)
	return &fixture{
		store:    s,
		notifier: &recordingNotifier{},
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_sweep_outcomes"}, []string{"outcome"}),
		logs:     testlog.New(),
	}
}

func (f *fixture) engine(now time.Time) *award.Engine {
	return award.NewEngine(f.store, clock.Fixed(now), f.notifier, f.outcomes, f.logs.Logger(), award.Config{
		AwardFee: decimal.RequireFromString("12.50"),
	})
}

func (f *fixture) tripWithExampleBids(timing domain.Timing) domain.Trip {
	trip := f.store.SeedTrip(domain.Trip{FacilityID: facilityID, Timing: timing, BiddingClosesAt: closeAt})
	f.store.SeedBid(domain.Bid{TripID: trip.ID, CarrierID: 10, UserID: 100, ETA: at(15, 10), CreatedAt: at(9, 0)})
	f.store.SeedBid(domain.Bid{TripID: trip.ID, CarrierID: 11, UserID: 110, ETA: at(14, 30), CreatedAt: at(9, 5)})
	f.store.SeedBid(domain.Bid{TripID: trip.ID, CarrierID: 12, UserID: 120, ETA: at(14, 0), CreatedAt: at(9, 10)})
	return trip
}

func TestSweep_FastestETA(t *testing.T) {
	f := newFixture(domain.AwardFastestETA)
	trip := f.tripWithExampleBids(domain.PickupAt(at(14, 40)))

	report, err := f.engine(closeAt).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, award.SweepReport{Examined: 1, Awarded: 1}, report)

	got := f.store.Trip(trip.ID)
	require.Equal(t, domain.TripAwarded, got.Status)
	require.NotNil(t, got.CarrierID)
	assert.Equal(t, int64(12), *got.CarrierID)
	assert.Equal(t, at(14, 0), *got.AwardedETA)

	billing := f.store.Billing()
	require.Len(t, billing, 1)
	assert.Equal(t, int64(12), billing[0].CarrierID)
	assert.True(t, decimal.RequireFromString("12.5").Equal(billing[0].Amount))

	audit := f.store.Audit(trip.ID)
	require.Len(t, audit, 1)
	assert.Equal(t, domain.EventTripAwarded, audit[0].Event)

	assert.Equal(t, []notify.Event{notify.EventTripAwarded}, f.notifier.To(120))
	assert.Equal(t, []notify.Event{notify.EventTripAwarded}, f.notifier.To(facilityUser))
	assert.Empty(t, f.notifier.To(100))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.outcomes.WithLabelValues("awarded")))
}

func TestSweep_ClosestToPickup(t *testing.T) {
	f := newFixture(domain.AwardClosestToPickup)
	trip := f.tripWithExampleBids(domain.PickupAt(at(14, 40)))

	_, err := f.engine(closeAt).Sweep(context.Background())
	require.NoError(t, err)

	got := f.store.Trip(trip.ID)
	assert.Equal(t, int64(11), *got.CarrierID)
	assert.Equal(t, at(14, 30), *got.AwardedETA)
}

func TestSweep_Deterministic(t *testing.T) {
	winners := map[int64]bool{}
	for i := 0; i < 5; i++ {
		f := newFixture(domain.AwardFastestETA)
		trip := f.store.SeedTrip(domain.Trip{FacilityID: facilityID, Timing: domain.ASAP(), BiddingClosesAt: closeAt})
		f.store.SeedBid(domain.Bid{TripID: trip.ID, CarrierID: 20, UserID: 200, ETA: at(14, 0), CreatedAt: at(9, 30)})
		f.store.SeedBid(domain.Bid{TripID: trip.ID, CarrierID: 21, UserID: 210, ETA: at(14, 0), CreatedAt: at(9, 10)})

		_, err := f.engine(closeAt).Sweep(context.Background())
		require.NoError(t, err)
		winners[*f.store.Trip(trip.ID).CarrierID] = true
	}
	assert.Equal(t, map[int64]bool{21: true}, winners)
}

func TestSweep_ExtendsOnceThenCancels(t *testing.T) {
	f := newFixture(domain.AwardFastestETA)
	trip := f.store.SeedTrip(domain.Trip{FacilityID: facilityID, Timing: domain.ASAP(), BiddingClosesAt: closeAt})

	report, err := f.engine(closeAt).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Extended)

	got := f.store.Trip(trip.ID)
	require.Equal(t, domain.TripBidding, got.Status)
	require.Equal(t, closeAt.Add(20*time.Minute), got.BiddingClosesAt)

	report, err = f.engine(closeAt.Add(10 * time.Minute)).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Examined, "extended window still open")

	report, err = f.engine(closeAt.Add(20 * time.Minute)).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Cancelled)
	assert.Equal(t, domain.TripCancelled, f.store.Trip(trip.ID).Status)

	var events []domain.AuditEvent
	for _, e := range f.store.Audit(trip.ID) {
		events = append(events, e.Event)
	}
	assert.Equal(t, []domain.AuditEvent{domain.EventBiddingExtended, domain.EventTripCancelled}, events)
	assert.Equal(t, []notify.Event{notify.EventBiddingExtended, notify.EventTripCancelled}, f.notifier.To(facilityUser))
	assert.Empty(t, f.store.Billing())
}

func TestSweep_LateSweepExtendsFromNow(t *testing.T) {
	f := newFixture(domain.AwardFastestETA)
	trip := f.store.SeedTrip(domain.Trip{FacilityID: facilityID, Timing: domain.ASAP(), BiddingClosesAt: closeAt})

	late := closeAt.Add(time.Hour)
	_, err := f.engine(late).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, late.Add(20*time.Minute), f.store.Trip(trip.ID).BiddingClosesAt)
}

func TestSweep_FailureIsolation(t *testing.T) {
	f := newFixture(domain.AwardFastestETA)
	first := f.store.SeedTrip(domain.Trip{FacilityID: facilityID, Timing: domain.ASAP(), BiddingClosesAt: closeAt.Add(-2 * time.Minute)})
	broken := f.store.SeedTrip(domain.Trip{FacilityID: facilityID, Timing: domain.ASAP(), BiddingClosesAt: closeAt.Add(-time.Minute)})
	last := f.store.SeedTrip(domain.Trip{FacilityID: facilityID, Timing: domain.ASAP(), BiddingClosesAt: closeAt})
	for _, trip := range []domain.Trip{first, broken, last} {
		f.store.SeedBid(domain.Bid{TripID: trip.ID, CarrierID: 10, UserID: 100, ETA: at(14, 0), CreatedAt: at(9, 0)})
	}
	f.store.FailFor("InsertBillingLineItem", broken.ID, errors.New("disk full"))

	report, err := f.engine(closeAt).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, award.SweepReport{Examined: 3, Awarded: 2, Failed: 1}, report)

	assert.Equal(t, domain.TripAwarded, f.store.Trip(first.ID).Status)
	assert.Equal(t, domain.TripAwarded, f.store.Trip(last.ID).Status)

	// the failed trip rolled back completely
	assert.Equal(t, domain.TripBidding, f.store.Trip(broken.ID).Status)
	assert.Nil(t, f.store.Trip(broken.ID).CarrierID)
	assert.Empty(t, f.store.Audit(broken.ID))
	assert.Len(t, f.store.Billing(), 2)

	entry, ok := f.logs.Find("award sweep trip failed")
	require.True(t, ok)
	id, _ := entry.Field("trip_id")
	assert.Equal(t, broken.ID, id)
}

func TestSweep_ConcurrentSweepsAwardOnce(t *testing.T) {
	f := newFixture(domain.AwardFastestETA)
	trip := f.tripWithExampleBids(domain.ASAP())

	var wg sync.WaitGroup
	reports := make([]award.SweepReport, 4)
	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := f.engine(closeAt).Sweep(context.Background())
			assert.NoError(t, err)
			reports[i] = r
		}(i)
	}
	wg.Wait()

	awarded := 0
	for _, r := range reports {
		awarded += r.Awarded
	}
	assert.Equal(t, 1, awarded)
	assert.Len(t, f.store.Billing(), 1)
	assert.Equal(t, domain.TripAwarded, f.store.Trip(trip.ID).Status)
}

func TestSweep_NoExpiredTrips(t *testing.T) {
	f := newFixture(domain.AwardFastestETA)
	f.store.SeedTrip(domain.Trip{FacilityID: facilityID, Timing: domain.ASAP(), BiddingClosesAt: closeAt.Add(time.Hour)})

	report, err := award.NewEngine(f.store, clock.Fixed(closeAt), nil, nil, logx.Nop(), award.Config{}).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, award.SweepReport{}, report)
}

func rebroadcast(t *testing.T, f *fixture, tripID int64, now time.Time) {
	t.Helper()
	err := f.store.WithTx(context.Background(), func(tx triptx.Repository) error {
		trip, err := tx.LockTrip(context.Background(), tripID)
		if err != nil {
			return err
		}
		return lifecycle.Rebroadcast(context.Background(), tx, trip, nil, "details change rejected", now)
	})
	require.NoError(t, err)
}

func TestSweep_RebroadcastTripIsAwardedAgain(t *testing.T) {
	f := newFixture(domain.AwardFastestETA)
	trip := f.tripWithExampleBids(domain.ASAP())

	_, err := f.engine(closeAt).Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.TripAwarded, f.store.Trip(trip.ID).Status)

	backAt := closeAt.Add(time.Hour)
	rebroadcast(t, f, trip.ID, backAt)
	require.Equal(t, domain.TripBidding, f.store.Trip(trip.ID).Status)
	require.Empty(t, f.store.Bids(trip.ID))

	rebid := f.store.SeedBid(domain.Bid{TripID: trip.ID, CarrierID: 11, UserID: 110, ETA: at(16, 0), CreatedAt: backAt.Add(time.Minute)})

	report, err := f.engine(backAt.Add(2 * time.Hour)).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, award.SweepReport{Examined: 1, Awarded: 1}, report)

	got := f.store.Trip(trip.ID)
	require.Equal(t, domain.TripAwarded, got.Status)
	assert.Equal(t, int64(11), *got.CarrierID)

	billing := f.store.Billing()
	require.Len(t, billing, 2)
	assert.Equal(t, int64(12), billing[0].CarrierID)
	assert.Equal(t, rebid.ID, billing[1].BidID)
	assert.Equal(t, int64(11), billing[1].CarrierID)
}

func TestSweep_BillingConflictIsAFailure(t *testing.T) {
	f := newFixture(domain.AwardFastestETA)
	trip := f.tripWithExampleBids(domain.ASAP())
	f.store.FailFor("InsertBillingLineItem", trip.ID, apperr.ErrConflict)

	report, err := f.engine(closeAt).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, award.SweepReport{Examined: 1, Failed: 1}, report)
	assert.Equal(t, domain.TripBidding, f.store.Trip(trip.ID).Status)

	_, ok := f.logs.Find("award sweep billing failed")
	assert.True(t, ok)
}

func TestSweep_ExtensionIsOncePerTripAcrossRebroadcast(t *testing.T) {
	f := newFixture(domain.AwardFastestETA)
	trip := f.store.SeedTrip(domain.Trip{FacilityID: facilityID, Timing: domain.ASAP(), BiddingClosesAt: closeAt})

	report, err := f.engine(closeAt).Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Extended)

	extendedTo := closeAt.Add(20 * time.Minute)
	f.store.SeedBid(domain.Bid{TripID: trip.ID, CarrierID: 10, UserID: 100, ETA: at(15, 0), CreatedAt: closeAt.Add(5 * time.Minute)})
	report, err = f.engine(extendedTo).Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Awarded)

	backAt := extendedTo.Add(time.Hour)
	rebroadcast(t, f, trip.ID, backAt)

	// no bids in the new window: the earlier extension already counts
	report, err = f.engine(backAt.Add(2 * time.Hour)).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, award.SweepReport{Examined: 1, Cancelled: 1}, report)
	assert.Equal(t, domain.TripCancelled, f.store.Trip(trip.ID).Status)
}

func TestSweep_RebroadcastWithoutPriorExtensionExtends(t *testing.T) {
	f := newFixture(domain.AwardFastestETA)
	trip := f.tripWithExampleBids(domain.ASAP())

	_, err := f.engine(closeAt).Sweep(context.Background())
	require.NoError(t, err)

	backAt := closeAt.Add(time.Hour)
	rebroadcast(t, f, trip.ID, backAt)

	reopenedClose := backAt.Add(2 * time.Hour)
	report, err := f.engine(reopenedClose).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, award.SweepReport{Examined: 1, Extended: 1}, report)
	assert.Equal(t, reopenedClose.Add(20*time.Minute), f.store.Trip(trip.ID).BiddingClosesAt)
}
