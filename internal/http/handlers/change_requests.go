package handlers

import (
	"net/http"

	"github.com/bedrock-cadence/transport-portal/internal/domain"
	"github.com/bedrock-cadence/transport-portal/internal/logx"
	"github.com/bedrock-cadence/transport-portal/internal/service/changereq"
)

// ChangeRequestHandler handles post-award change requests.
type ChangeRequestHandler struct {
	usecase changeUsecase
	logger  logx.Logger
}

// NewChangeRequestHandler creates a new ChangeRequestHandler.
func NewChangeRequestHandler(logger logx.Logger, uc changeUsecase) *ChangeRequestHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &ChangeRequestHandler{usecase: uc, logger: logger}
}

// List handles GET /trips/{uuid}/change-requests.
func (h *ChangeRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(h.logger, w, r)
	if !ok {
		return
	}
	id, err := uuidFromURL(r, "uuid")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid trip id")
		return
	}

	views, err := h.usecase.ListForTrip(r.Context(), actor, id)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, views)
}

// RequestETA handles POST /trips/{uuid}/change-requests/eta.
func (h *ChangeRequestHandler) RequestETA(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(h.logger, w, r)
	if !ok {
		return
	}
	id, err := uuidFromURL(r, "uuid")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid trip id")
		return
	}
	var req etaChangeRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	cr, err := h.usecase.RequestETAChange(r.Context(), actor, id, req.ETA)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, changeToResponse(*cr))
}

// RequestDetails handles POST /trips/{uuid}/change-requests/details.
func (h *ChangeRequestHandler) RequestDetails(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(h.logger, w, r)
	if !ok {
		return
	}
	id, err := uuidFromURL(r, "uuid")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid trip id")
		return
	}
	var req detailsChangeRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	cr, err := h.usecase.RequestDetailsChange(r.Context(), actor, id, req.Changes)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, changeToResponse(*cr))
}

// Decide handles POST /change-requests/{id}/decision.
func (h *ChangeRequestHandler) Decide(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(h.logger, w, r)
	if !ok {
		return
	}
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid change request id")
		return
	}
	var req decisionRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if req.Accept == nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "accept is required")
		return
	}

	var res changereq.Result
	switch req.Kind {
	case domain.ChangeETA:
		res, err = h.usecase.DecideETAChange(r.Context(), actor, id, *req.Accept)
	case domain.ChangeDetails:
		res, err = h.usecase.DecideDetailsChange(r.Context(), actor, id, *req.Accept)
	default:
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid kind")
		return
	}
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, resultToResponse(res))
}

// FollowUp handles POST /change-requests/{id}/follow-up.
func (h *ChangeRequestHandler) FollowUp(w http.ResponseWriter, r *http.Request) {
	actor, ok := caller(h.logger, w, r)
	if !ok {
		return
	}
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid change request id")
		return
	}
	var req followUpRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	res, err := h.usecase.ResolveRejectedETAChange(r.Context(), actor, id, req.FollowUp)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, resultToResponse(res))
}
