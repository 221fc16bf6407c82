package changereq_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bedrock-cadence/transport-portal/internal/apperr"
	"github.com/bedrock-cadence/transport-portal/internal/clock"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/notify"
	"github.com/bedrock-cadence/transport-portal/internal/phi"
	"github.com/bedrock-cadence/transport-portal/internal/service/changereq"
	"github.com/bedrock-cadence/transport-portal/internal/service/disclosure"
	"github.com/bedrock-cadence/transport-portal/internal/testutil/memstore"
	"github.com/bedrock-cadence/transport-portal/internal/testutil/testlog"
)

const (
	facilityID   = int64(1)
	facilityUser = int64(100)
	carrierID    = int64(10)
	carrierUser  = int64(200)
	otherCarrier = int64(11)
)

var (
	awardedAt = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	facility = domain.AuthContext{UserID: facilityUser, Role: domain.RoleMember, EntityType: domain.EntityFacility, EntityID: facilityID}
	carrier  = domain.AuthContext{UserID: carrierUser, Role: domain.RoleMember, EntityType: domain.EntityCarrier, EntityID: carrierID}
	stranger = domain.AuthContext{UserID: 300, Role: domain.RoleMember, EntityType: domain.EntityCarrier, EntityID: otherCarrier}
)

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
	cipher   *phi.XChaCha
	notifier *recordingNotifier
	now      time.Time
	trip     domain.Trip
}

func newFixture(t *testing.T, timing domain.Timing) *fixture {
	t.Helper()

	c, err := phi.NewXChaCha([]byte(strings.Repeat("k", 32)))
	require.NoError(t, err)

	s := memstore.New()
	s.AddFacility(facilityID, domain.AwardFastestETA)
	s.AddCarrier(carrierID, true)
	s.AddCarrier(otherCarrier, true)
	s.AddUser(facilityUser, domain.EntityFacility, facilityID, true)
	s.AddUser(carrierUser, domain.EntityCarrier, carrierID, true)

	first, err := c.Encrypt("Ada")
	require.NoError(t, err)

	eta := awardedAt.Add(30 * time.Minute)
	cid := carrierID
	trip := s.SeedTrip(domain.Trip{
		FacilityID:      facilityID,
		CarrierID:       &cid,
		Status:          domain.TripAwarded,
		Timing:          timing,
		BiddingClosesAt: awardedAt,
		AwardedETA:      &eta,
		Details: domain.TripDetails{
			Origin:      "General Hospital",
			Destination: "Home",
			Equipment:   "wheelchair",
			Patient:     domain.Patient{FirstName: first},
		},
	})
	s.SeedBid(domain.Bid{TripID: trip.ID, CarrierID: carrierID, UserID: carrierUser, ETA: eta, CreatedAt: awardedAt.Add(-time.Hour)})

	return &fixture{store: s, cipher: c, notifier: &recordingNotifier{}, now: awardedAt.Add(time.Hour), trip: trip}
}

func (f *fixture) arbiter() *changereq.Arbiter {
	return changereq.NewArbiter(f.store, f.cipher, f.notifier, clock.Func(func() time.Time { return f.now }), time.Second, testlog.New().Logger())
}

func TestRequestETAChange_CreatesPendingRequest(t *testing.T) {
	f := newFixture(t, domain.ASAP())
	eta := awardedAt.Add(2 * time.Hour)

	cr, err := f.arbiter().RequestETAChange(context.Background(), carrier, f.trip.UUID, eta)
	require.NoError(t, err)

	assert.Equal(t, domain.ChangePending, cr.Status)
	assert.Equal(t, domain.ChangeETA, cr.Kind)
	assert.Equal(t, eta.Format(time.RFC3339), cr.Diff[domain.FieldAwardedETA].New)
	assert.Equal(t, awardedAt.Add(30*time.Minute).Format(time.RFC3339), cr.Diff[domain.FieldAwardedETA].Old)
	assert.Equal(t, []notify.Event{notify.EventChangeRequested}, f.notifier.To(facilityUser))

	_, err = f.arbiter().RequestETAChange(context.Background(), carrier, f.trip.UUID, eta.Add(time.Hour))
	assert.ErrorIs(t, err, apperr.ErrConflict, "one pending eta change per trip")
}

func TestRequestETAChange_OnlyAwardedCarrier(t *testing.T) {
	f := newFixture(t, domain.ASAP())

	_, err := f.arbiter().RequestETAChange(context.Background(), stranger, f.trip.UUID, awardedAt.Add(2*time.Hour))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.arbiter().RequestETAChange(context.Background(), facility, f.trip.UUID, awardedAt.Add(2*time.Hour))
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestRequestETAChange_ClosedTrip(t *testing.T) {
	f := newFixture(t, domain.ASAP())
	trip := f.trip
	trip.Status = domain.TripCancelled
	f.store.SeedTrip(trip)

	_, err := f.arbiter().RequestETAChange(context.Background(), carrier, f.trip.UUID, awardedAt.Add(2*time.Hour))
	assert.ErrorIs(t, err, apperr.ErrTripClosed)
}

func TestDecideETAChange_Accept(t *testing.T) {
	f := newFixture(t, domain.ASAP())
	a := f.arbiter()
	eta := awardedAt.Add(2 * time.Hour)

	cr, err := a.RequestETAChange(context.Background(), carrier, f.trip.UUID, eta)
	require.NoError(t, err)

	res, err := a.DecideETAChange(context.Background(), facility, cr.ID, true)
	require.NoError(t, err)

	assert.Equal(t, domain.ChangeAccepted, res.Request.Status)
	stored := f.store.Trip(f.trip.ID)
	require.NotNil(t, stored.AwardedETA)
	assert.True(t, eta.Equal(*stored.AwardedETA))
	assert.Equal(t, domain.TripAwarded, stored.Status)
	assert.Contains(t, f.notifier.To(carrierUser), notify.EventChangeAccepted)

	_, err = a.DecideETAChange(context.Background(), facility, cr.ID, false)
	assert.ErrorIs(t, err, apperr.ErrConflict, "already decided")
}

func TestDecideETAChange_WrongActor(t *testing.T) {
	f := newFixture(t, domain.ASAP())
	a := f.arbiter()

	cr, err := a.RequestETAChange(context.Background(), carrier, f.trip.UUID, awardedAt.Add(2*time.Hour))
	require.NoError(t, err)

	_, err = a.DecideETAChange(context.Background(), carrier, cr.ID, true)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	other := facility
	other.EntityID = 2
	_, err = a.DecideETAChange(context.Background(), other, cr.ID, true)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = a.DecideETAChange(context.Background(), facility, 9999, true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRejectedETAChange_Rebroadcast(t *testing.T) {
	f := newFixture(t, domain.ASAP())
	a := f.arbiter()

	cr, err := a.RequestETAChange(context.Background(), carrier, f.trip.UUID, awardedAt.Add(3*time.Hour))
	require.NoError(t, err)

	res, err := a.DecideETAChange(context.Background(), facility, cr.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.ChangeRejected, res.Request.Status)
	assert.Equal(t, domain.TripAwarded, f.store.Trip(f.trip.ID).Status, "rejection alone keeps the award")

	res, err = a.ResolveRejectedETAChange(context.Background(), facility, cr.ID, domain.FollowUpRebroadcast)
	require.NoError(t, err)

	stored := f.store.Trip(f.trip.ID)
	assert.Equal(t, domain.TripBidding, stored.Status)
	assert.Nil(t, stored.CarrierID)
	assert.Nil(t, stored.AwardedETA)
	assert.True(t, awardedAt.Add(3*time.Hour).Equal(stored.BiddingClosesAt), "closes two hours after the follow-up")
	assert.Empty(t, f.store.Bids(f.trip.ID))
	assert.False(t, f.store.Locked(f.trip.ID, carrierID))
	assert.Equal(t, domain.TripBidding, res.Trip.Status)
	assert.Contains(t, f.notifier.To(carrierUser), notify.EventTripRebroadcast)

	_, err = a.ResolveRejectedETAChange(context.Background(), facility, cr.ID, domain.FollowUpCancel)
	assert.ErrorIs(t, err, apperr.ErrConflict, "follow-up is chosen once")
}

func TestRejectedETAChange_Cancel(t *testing.T) {
	f := newFixture(t, domain.ASAP())
	a := f.arbiter()

	cr, err := a.RequestETAChange(context.Background(), carrier, f.trip.UUID, awardedAt.Add(3*time.Hour))
	require.NoError(t, err)
	_, err = a.DecideETAChange(context.Background(), facility, cr.ID, false)
	require.NoError(t, err)

	_, err = a.ResolveRejectedETAChange(context.Background(), facility, cr.ID, domain.FollowUpCancel)
	require.NoError(t, err)

	stored := f.store.Trip(f.trip.ID)
	assert.Equal(t, domain.TripCancelled, stored.Status)
	require.NotNil(t, stored.CarrierID)
	assert.Equal(t, carrierID, *stored.CarrierID)
	assert.Contains(t, f.notifier.To(carrierUser), notify.EventTripCancelled)
}

func TestResolveRejectedETAChange_Validation(t *testing.T) {
	f := newFixture(t, domain.ASAP())
	a := f.arbiter()

	cr, err := a.RequestETAChange(context.Background(), carrier, f.trip.UUID, awardedAt.Add(3*time.Hour))
	require.NoError(t, err)

	_, err = a.ResolveRejectedETAChange(context.Background(), facility, cr.ID, domain.FollowUp("ignore"))
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = a.ResolveRejectedETAChange(context.Background(), facility, cr.ID, domain.FollowUpRebroadcast)
	assert.ErrorIs(t, err, apperr.ErrConflict, "request is still pending")
}

func TestRequestDetailsChange_EncryptsPHI(t *testing.T) {
	f := newFixture(t, domain.ASAP())

	cr, err := f.arbiter().RequestDetailsChange(context.Background(), facility, f.trip.UUID, map[domain.DetailField]string{
		domain.FieldPatientFirstName: "Grace",
		domain.FieldEquipment:        "stretcher",
	})
	require.NoError(t, err)

	first := cr.Diff[domain.FieldPatientFirstName]
	assert.NotContains(t, first.New, "Grace")
	sealed, err := domain.DecodeCiphertext(first.New)
	require.NoError(t, err)
	plain, err := f.cipher.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "Grace", plain)

	assert.Equal(t, domain.FieldChange{Old: "wheelchair", New: "stretcher"}, cr.Diff[domain.FieldEquipment])
	assert.Equal(t, []notify.Event{notify.EventChangeRequested}, f.notifier.To(carrierUser))
}

func TestRequestDetailsChange_Validation(t *testing.T) {
	f := newFixture(t, domain.ASAP())
	a := f.arbiter()

	tests := []struct {
		name    string
		actor   domain.AuthContext
		changes map[domain.DetailField]string
		want    error
	}{
		{"empty", facility, nil, apperr.ErrInvalid},
		{"origin is not editable", facility, map[domain.DetailField]string{"origin": "elsewhere"}, apperr.ErrInvalid},
		{"ssn is not editable", facility, map[domain.DetailField]string{"patient_ssn": "000"}, apperr.ErrInvalid},
		{"eta is not a detail", facility, map[domain.DetailField]string{domain.FieldAwardedETA: "2026-06-01T10:00:00Z"}, apperr.ErrInvalid},
		{"bad appointment", facility, map[domain.DetailField]string{domain.FieldAppointmentAt: "tomorrow"}, apperr.ErrInvalid},
		{"asap trip has no appointment", facility, map[domain.DetailField]string{domain.FieldAppointmentAt: "2026-06-01T15:00:00Z"}, apperr.ErrInvalid},
		{"carrier cannot request", carrier, map[domain.DetailField]string{domain.FieldEquipment: "x"}, apperr.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.RequestDetailsChange(context.Background(), tt.actor, f.trip.UUID, tt.changes)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecideDetailsChange_Accept(t *testing.T) {
	appt := awardedAt.Add(6 * time.Hour)
	f := newFixture(t, domain.AppointmentAt(appt))
	a := f.arbiter()

	moved := appt.Add(time.Hour)
	cr, err := a.RequestDetailsChange(context.Background(), facility, f.trip.UUID, map[domain.DetailField]string{
		domain.FieldPatientFirstName: "Grace",
		domain.FieldAppointmentAt:    moved.Format(time.RFC3339),
	})
	require.NoError(t, err)

	_, err = a.DecideDetailsChange(context.Background(), stranger, cr.ID, true)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	res, err := a.DecideDetailsChange(context.Background(), carrier, cr.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.ChangeAccepted, res.Request.Status)

	stored := f.store.Trip(f.trip.ID)
	got, ok := stored.Timing.Appointment()
	require.True(t, ok)
	assert.True(t, moved.Equal(got))
	name, err := f.cipher.Decrypt(stored.Details.Patient.FirstName)
	require.NoError(t, err)
	assert.Equal(t, "Grace", name)
	assert.Equal(t, domain.TripAwarded, stored.Status)
	assert.Contains(t, f.notifier.To(facilityUser), notify.EventChangeAccepted)
}

func TestDecideDetailsChange_RejectRebroadcasts(t *testing.T) {
	f := newFixture(t, domain.ASAP())
	a := f.arbiter()

	cr, err := a.RequestDetailsChange(context.Background(), facility, f.trip.UUID, map[domain.DetailField]string{
		domain.FieldIsolationPrecautions: "contact",
	})
	require.NoError(t, err)

	res, err := a.DecideDetailsChange(context.Background(), carrier, cr.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.ChangeRejected, res.Request.Status)

	stored := f.store.Trip(f.trip.ID)
	assert.Equal(t, domain.TripBidding, stored.Status)
	assert.Nil(t, stored.CarrierID)
	assert.Empty(t, stored.Details.IsolationPrecautions, "rejected changes are not applied")
	assert.True(t, f.now.Add(2*time.Hour).Equal(stored.BiddingClosesAt))
	assert.Contains(t, f.notifier.To(facilityUser), notify.EventChangeRejected)

	var events []domain.AuditEvent
	for _, e := range f.store.Audit(f.trip.ID) {
		events = append(events, e.Event)
	}
	assert.Equal(t, []domain.AuditEvent{domain.EventChangeRequested, domain.EventChangeRejected, domain.EventTripRebroadcast}, events)
}

func TestRebroadcast_ClosesOtherPendingRequests(t *testing.T) {
	f := newFixture(t, domain.ASAP())
	a := f.arbiter()

	eta, err := a.RequestETAChange(context.Background(), carrier, f.trip.UUID, awardedAt.Add(3*time.Hour))
	require.NoError(t, err)
	details, err := a.RequestDetailsChange(context.Background(), facility, f.trip.UUID, map[domain.DetailField]string{
		domain.FieldEquipment: "stretcher",
	})
	require.NoError(t, err)

	_, err = a.DecideDetailsChange(context.Background(), carrier, details.ID, false)
	require.NoError(t, err)

	closed := f.store.ChangeRequest(eta.ID)
	assert.Equal(t, domain.ChangeRejected, closed.Status)
	assert.Nil(t, closed.ResolvedByUserID)

	_, err = a.ResolveRejectedETAChange(context.Background(), facility, eta.ID, domain.FollowUpCancel)
	assert.ErrorIs(t, err, apperr.ErrConflict, "auto-closed requests have no follow-up")
}

func TestDecideDetailsChange_StorageFailureRollsBack(t *testing.T) {
	f := newFixture(t, domain.ASAP())
	a := f.arbiter()

	cr, err := a.RequestDetailsChange(context.Background(), facility, f.trip.UUID, map[domain.DetailField]string{
		domain.FieldEquipment: "stretcher",
	})
	require.NoError(t, err)

	boom := errors.New("disk full")
	f.store.FailFor("AppendAudit", f.trip.ID, boom)

	_, err = a.DecideDetailsChange(context.Background(), carrier, cr.ID, true)
	require.ErrorIs(t, err, apperr.ErrTransaction)

	assert.Equal(t, "wheelchair", f.store.Trip(f.trip.ID).Details.Equipment)
	assert.Equal(t, domain.ChangePending, f.store.ChangeRequest(cr.ID).Status)
}

func TestListForTrip_ValuesFollowDisclosure(t *testing.T) {
	f := newFixture(t, domain.ASAP())
	a := f.arbiter()

	_, err := a.RequestDetailsChange(context.Background(), facility, f.trip.UUID, map[domain.DetailField]string{
		domain.FieldPatientFirstName: "Grace",
		domain.FieldEquipment:        "stretcher",
	})
	require.NoError(t, err)

	// the facility proposed the name but may not read first names back
	views, err := a.ListForTrip(context.Background(), facility, f.trip.UUID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, []disclosure.ChangeFieldView{
		{Field: domain.FieldEquipment, Old: "wheelchair", New: "stretcher"},
		{Field: domain.FieldPatientFirstName, Withheld: true},
	}, views[0].Changes)

	views, err = a.ListForTrip(context.Background(), carrier, f.trip.UUID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, []disclosure.ChangeFieldView{
		{Field: domain.FieldEquipment, Old: "wheelchair", New: "stretcher"},
		{Field: domain.FieldPatientFirstName, Old: "Ada", New: "Grace"},
	}, views[0].Changes)
	assert.Equal(t, domain.ChangeDetails, views[0].Kind)
	assert.Equal(t, facilityUser, views[0].RequestedBy)
}

func TestListForTrip_NewestFirst(t *testing.T) {
	f := newFixture(t, domain.ASAP())
	a := f.arbiter()

	eta, err := a.RequestETAChange(context.Background(), carrier, f.trip.UUID, awardedAt.Add(2*time.Hour))
	require.NoError(t, err)
	details, err := a.RequestDetailsChange(context.Background(), facility, f.trip.UUID, map[domain.DetailField]string{
		domain.FieldEquipment: "stretcher",
	})
	require.NoError(t, err)

	views, err := a.ListForTrip(context.Background(), facility, f.trip.UUID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, details.ID, views[0].ID)
	assert.Equal(t, eta.ID, views[1].ID)
	assert.Equal(t, []disclosure.ChangeFieldView{{
		Field: domain.FieldAwardedETA,
		Old:   awardedAt.Add(30 * time.Minute).Format(time.RFC3339),
		New:   awardedAt.Add(2 * time.Hour).Format(time.RFC3339),
	}}, views[1].Changes)
}

func TestListForTrip_Access(t *testing.T) {
	f := newFixture(t, domain.ASAP())
	a := f.arbiter()

	_, err := a.ListForTrip(context.Background(), stranger, f.trip.UUID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = a.ListForTrip(context.Background(), facility, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	views, err := a.ListForTrip(context.Background(), facility, f.trip.UUID)
	require.NoError(t, err)
	assert.Empty(t, views)
}
