package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
)

// TripHandler handles trip, bid and preference endpoints.
type TripHandler struct {
	usecase tripUsecase
	logger  logx.Logger
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(logger logx.Logger, uc tripUsecase) *TripHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &TripHandler{usecase: uc, logger: logger}
}

// Board handles GET /trips/board.
func (h *TripHandler) Board(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(h.logger, w, r)
	if !ok {
		return
	}
	views, err := h.usecase.Board(r.Context(), actor)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, views)
}

// View handles GET /trips/{uuid}.
func (h *TripHandler) View(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.tripTarget(w, r)
	if !ok {
		return
	}
	view, err := h.usecase.View(r.Context(), actor, id)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, view)
}

// History handles GET /trips/{uuid}/history.
func (h *TripHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.tripTarget(w, r)
	if !ok {
		return
	}
	entries, err := h.usecase.History(r.Context(), actor, id)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	out := make([]auditDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditToResponse(e))
	}
	writeJSON(h.logger, w, r, http.StatusOK, out)
}

// PlaceBid handles POST /trips/{uuid}/bids.
func (h *TripHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.tripTarget(w, r)
	if !ok {
		return
	}
	var req placeBidRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	bid, err := h.usecase.PlaceBid(r.Context(), actor, id, req.ETA)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, bidToResponse(bid))
}

// RetractBid handles DELETE /trips/{uuid}/bids.
func (h *TripHandler) RetractBid(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.tripTarget(w, r)
	if !ok {
		return
	}
	if err := h.usecase.RetractBid(r.Context(), actor, id); err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cancel handles POST /trips/{uuid}/cancel.
func (h *TripHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.tripTarget(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	h.transition(w, r, func(ctx context.Context) (domain.Trip, error) {
		return h.usecase.Cancel(ctx, actor, id, req.Reason)
	})
}

// Complete handles POST /trips/{uuid}/complete.
func (h *TripHandler) Complete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.tripTarget(w, r)
	if !ok {
		return
	}
	h.transition(w, r, func(ctx context.Context) (domain.Trip, error) {
		return h.usecase.CarrierComplete(ctx, actor, id)
	})
}

// Confirm handles POST /trips/{uuid}/confirm.
func (h *TripHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.tripTarget(w, r)
	if !ok {
		return
	}
	h.transition(w, r, func(ctx context.Context) (domain.Trip, error) {
		return h.usecase.FacilityConfirm(ctx, actor, id)
	})
}

// PutPreference handles PUT /facility/preferences/{carrierID}.
func (h *TripHandler) PutPreference(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(h.logger, w, r)
	if !ok {
		return
	}
	carrierID, err := idFromURL(r, "carrierID")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid carrier id")
		return
	}
	var req preferenceRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if err := h.usecase.SetPreference(r.Context(), actor, carrierID, req.Kind); err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeletePreference handles DELETE /facility/preferences/{carrierID}.
func (h *TripHandler) DeletePreference(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(h.logger, w, r)
	if !ok {
		return
	}
	carrierID, err := idFromURL(r, "carrierID")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid carrier id")
		return
	}
	if err := h.usecase.DeletePreference(r.Context(), actor, carrierID); err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TripHandler) tripTarget(w http.ResponseWriter, r *http.Request) (domain.AuthContext, uuid.UUID, bool) {
	actor, ok := caller(h.logger, w, r)
	if !ok {
		return domain.AuthContext{}, uuid.Nil, false
	}
	id, err := uuidFromURL(r, "uuid")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid trip id")
		return domain.AuthContext{}, uuid.Nil, false
	}
	return actor, id, true
}

func (h *TripHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context) (domain.Trip, error)) {
	trip, err := fn(r.Context())
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, tripToState(trip))
}
