package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bedrock-cadence/transport-portal/internal/http/handlers"
)

// Middleware is a chi-style middleware.
type Middleware = func(http.Handler) http.Handler

// Deps are the handlers and middleware the router mounts. Nil middleware is skipped.
type Deps struct {
	Base    *handlers.Handlers
	Trips   *handlers.TripHandler
	Changes *handlers.ChangeRequestHandler

	Observability Middleware
	Auth          Middleware
	RateLimit     Middleware
	Metrics       http.Handler
}

// New constructs a chi-based http.Handler with base middleware and routes.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if d.Observability != nil {
		r.Use(d.Observability)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	r.NotFound(http.HandlerFunc(d.Base.NotFound))

	r.Group(func(r chi.Router) {
		if d.Auth != nil {
			r.Use(d.Auth)
		}
		// лимит после auth, чтобы ключом была организация, а не IP
		if d.RateLimit != nil {
			r.Use(d.RateLimit)
		}

		r.Route("/trips", func(r chi.Router) {
			r.Get("/board", d.Trips.Board)
			r.Route("/{uuid}", func(r chi.Router) {
				r.Get("/", d.Trips.View)
				r.Get("/history", d.Trips.History)
				r.Post("/bids", d.Trips.PlaceBid)
				r.Delete("/bids", d.Trips.RetractBid)
				r.Post("/cancel", d.Trips.Cancel)
				r.Post("/complete", d.Trips.Complete)
				r.Post("/confirm", d.Trips.Confirm)
				r.Get("/change-requests", d.Changes.List)
				r.Post("/change-requests/eta", d.Changes.RequestETA)
				r.Post("/change-requests/details", d.Changes.RequestDetails)
			})
		})

		r.Post("/change-requests/{id}/decision", d.Changes.Decide)
		r.Post("/change-requests/{id}/follow-up", d.Changes.FollowUp)

		r.Put("/facility/preferences/{carrierID}", d.Trips.PutPreference)
		r.Delete("/facility/preferences/{carrierID}", d.Trips.DeletePreference)
	})

	return r
}
