package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bedrock-cadence/transport-portal/internal/clock"
	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/http/handlers"
	"github.com/bedrock-cadence/transport-portal/internal/http/middleware"
	"github.com/bedrock-cadence/transport-portal/internal/http/router"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/notify"
	"github.com/bedrock-cadence/transport-portal/internal/phi"
	"github.com/bedrock-cadence/transport-portal/internal/service/changereq"
	"github.com/bedrock-cadence/transport-portal/internal/service/trips"
	"github.com/bedrock-cadence/transport-portal/internal/testutil/memstore"
)

var (
	secret = []byte("router-test-secret")
	now    = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	facility = domain.AuthContext{UserID: 100, Role: domain.RoleMember, EntityType: domain.EntityFacility, EntityID: 1}
	carrier  = domain.AuthContext{UserID: 200, Role: domain.RoleMember, EntityType: domain.EntityCarrier, EntityID: 10}
)

type nopNotifier struct{}

func (nopNotifier) Deliver(context.Context, ...notify.Notification) {}

type portal struct {
	handler http.Handler
	svc     *trips.Service
	store   *memstore.Store
}

func newPortal(t *testing.T) *portal {
	t.Helper()

	c, err := phi.NewXChaCha([]byte(strings.Repeat("r", 32)))
	require.NoError(t, err)

	s := memstore.New()
	s.AddFacility(1, domain.AwardFastestETA)
	s.AddUser(100, domain.EntityFacility, 1, true)
	s.AddCarrier(10, true)
	s.AddUser(200, domain.EntityCarrier, 10, true)

	clk := clock.Fixed(now)
	svc := trips.NewService(s, c, nopNotifier{}, clk, trips.Config{}, logx.Nop())
	arb := changereq.NewArbiter(s, c, nopNotifier{}, clk, time.Second, logx.Nop())

	h := router.New(router.Deps{
		Base:    handlers.New(logx.Nop()),
		Trips:   handlers.NewTripHandler(logx.Nop(), handlers.NewTripUsecase(svc)),
		Changes: handlers.NewChangeRequestHandler(logx.Nop(), handlers.NewChangeUsecase(arb)),
		Auth:    middleware.Auth(secret, logx.Nop()),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
	})
	return &portal{handler: h, svc: svc, store: s}
}

func (p *portal) do(t *testing.T, method, path, body string, as *domain.AuthContext) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if as != nil {
		tok, err := middleware.SignToken(secret, *as, time.Now(), time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rr := httptest.NewRecorder()
	p.handler.ServeHTTP(rr, req)
	return rr
}

func TestRouter_PublicRoutes(t *testing.T) {
	p := newPortal(t)

	assert.Equal(t, http.StatusOK, p.do(t, http.MethodGet, "/ping", "", nil).Code)
	assert.Equal(t, http.StatusNoContent, p.do(t, http.MethodHead, "/healthcheck", "", nil).Code)
	assert.Equal(t, http.StatusOK, p.do(t, http.MethodGet, "/metrics", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, p.do(t, http.MethodGet, "/couriers", "", nil).Code)
}

func TestRouter_TripRoutesNeedToken(t *testing.T) {
	p := newPortal(t)

	assert.Equal(t, http.StatusUnauthorized, p.do(t, http.MethodGet, "/trips/board", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, p.do(t, http.MethodPost, "/change-requests/1/decision", `{}`, nil).Code)
}

func TestRouter_BidFlow(t *testing.T) {
	p := newPortal(t)

	trip, err := p.svc.CreateTrip(context.Background(), trips.NewTrip{
		FacilityID:    1,
		Timing:        domain.PickupAt(now.Add(3 * time.Hour)),
		Origin:        "General Hospital",
		Destination:   "12 Elm St",
		DistanceMiles: decimal.RequireFromString("4.2"),
		Patient:       trips.PatientInput{FirstName: "Ada", LastName: "Lovelace", DOB: "1950-12-10", Weight: "140 lb"},
	})
	require.NoError(t, err)
	base := "/trips/" + trip.UUID.String()

	rr := p.do(t, http.MethodGet, "/trips/board", "", &carrier)
	require.Equal(t, http.StatusOK, rr.Code)
	var board []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &board))
	require.Len(t, board, 1)
	assert.NotContains(t, rr.Body.String(), "Lovelace")
	assert.Contains(t, rr.Body.String(), "140 lb")

	rr = p.do(t, http.MethodPost, base+"/bids", `{"eta":"2026-06-01T11:30:00Z"}`, &carrier)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, p.store.Bids(trip.ID), 1)

	rr = p.do(t, http.MethodPost, base+"/bids", `{"eta":"2026-06-01T11:00:00Z"}`, &carrier)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = p.do(t, http.MethodPost, base+"/bids", `{"eta":"2026-06-01T11:00:00Z"}`, &facility)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = p.do(t, http.MethodGet, base, "", &facility)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Lovelace")
	assert.NotContains(t, rr.Body.String(), "Ada")

	rr = p.do(t, http.MethodDelete, base+"/bids", "", &carrier)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.True(t, p.store.Locked(trip.ID, 10))

	rr = p.do(t, http.MethodPost, base+"/cancel", `{"reason":"no longer needed"}`, &facility)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.TripCancelled, p.store.Trip(trip.ID).Status)

	rr = p.do(t, http.MethodPut, "/facility/preferences/10", `{"kind":"preferred"}`, &facility)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	kind, ok := p.store.Preference(1, 10)
	require.True(t, ok)
	assert.Equal(t, domain.PreferencePreferred, kind)
}

func TestRouter_ReadChangeRequestsAndHistory(t *testing.T) {
	p := newPortal(t)

	created, err := p.svc.CreateTrip(context.Background(), trips.NewTrip{
		FacilityID:    1,
		Timing:        domain.PickupAt(now.Add(3 * time.Hour)),
		Origin:        "General Hospital",
		Destination:   "12 Elm St",
		DistanceMiles: decimal.RequireFromString("4.2"),
		Equipment:     "wheelchair",
		Patient:       trips.PatientInput{FirstName: "Ada", LastName: "Lovelace", DOB: "1950-12-10"},
	})
	require.NoError(t, err)
	trip := p.store.Trip(created.ID)
	cid, eta := int64(10), now.Add(2*time.Hour)
	trip.Status, trip.CarrierID, trip.AwardedETA = domain.TripAwarded, &cid, &eta
	p.store.SeedTrip(trip)
	base := "/trips/" + trip.UUID.String()

	rr := p.do(t, http.MethodPost, base+"/change-requests/details", `{"changes":{"patient_first_name":"Grace"}}`, &facility)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = p.do(t, http.MethodGet, base+"/change-requests", "", &facility)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"withheld":true`)
	assert.NotContains(t, rr.Body.String(), "Grace")

	rr = p.do(t, http.MethodGet, base+"/change-requests", "", &carrier)
	require.Equal(t, http.StatusOK, rr.Code)
	var views []struct {
		Changes []struct {
			Field string `json:"field"`
			Old   string `json:"old"`
			New   string `json:"new"`
		} `json:"changes"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	require.Len(t, views, 1)
	require.Len(t, views[0].Changes, 1)
	assert.Equal(t, "Ada", views[0].Changes[0].Old)
	assert.Equal(t, "Grace", views[0].Changes[0].New)

	rr = p.do(t, http.MethodGet, base+"/history", "", &facility)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"trip_created"`)
	assert.Contains(t, rr.Body.String(), `"change_requested"`)

	rr = p.do(t, http.MethodGet, base+"/history", "", &carrier)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
