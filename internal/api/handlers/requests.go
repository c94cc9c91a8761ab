package handlers

import (
	"net/http"

	"pickup-request-service/internal/api/dto"
	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/services"
)

// RequestHandler exposes creation and the lifecycle actions of a single
// request. Every route behind it requires a session.
type RequestHandler struct {
	Engine  *services.Engine
	Queries *services.Queries
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())

	var in dto.CreateRequestRequest
	if err := decodeJSON(r, &in); err != nil {
		WriteServiceError(w, r, err)
		return
	}

	req, err := h.Engine.Create(r.Context(), in.ToDomain(caller.UserID))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.FromRequest(req))
}

func (h *RequestHandler) Mine(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())

	reqs, err := h.Queries.ListByUser(r.Context(), caller.UserID)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromRequests(reqs))
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	h.respond(w, r, id, http.StatusOK)
}

func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	h.act(w, r, func(id int64) error {
		return h.Engine.Cancel(r.Context(), id, caller.UserID)
	})
}

func (h *RequestHandler) Assign(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	if !caller.Role.CanAssign() {
		forbidden(w, r)
		return
	}

	var in dto.AssignRequest
	if err := decodeJSON(r, &in); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if in.CollectorID <= 0 {
		WriteServiceError(w, r, domain.Invalid("collector_id", "is required"))
		return
	}

	h.act(w, r, func(id int64) error {
		if err := h.Queries.AuthorizeDispatch(r.Context(), caller, id); err != nil {
			return err
		}
		return h.Engine.Assign(r.Context(), id, in.CollectorID)
	})
}

// Claim assigns a pending request to the calling field user.
func (h *RequestHandler) Claim(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	if !caller.Role.IsField() {
		forbidden(w, r)
		return
	}
	h.act(w, r, func(id int64) error {
		return h.Engine.Assign(r.Context(), id, caller.UserID)
	})
}

// Transit starts the trip. The confirmation code goes to the owner's phone
// and is not part of the response.
func (h *RequestHandler) Transit(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	if !caller.Role.IsField() {
		forbidden(w, r)
		return
	}
	h.act(w, r, func(id int64) error {
		_, err := h.Engine.StartTransit(r.Context(), id, caller.UserID)
		return err
	})
}

func (h *RequestHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	if !caller.Role.IsField() {
		forbidden(w, r)
		return
	}
	h.act(w, r, func(id int64) error {
		return h.Engine.Deliver(r.Context(), id, caller.UserID)
	})
}

// Confirm is open to anyone who can see the request: the owner reading the
// code aloud, or the collector typing it in.
func (h *RequestHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if _, err := h.Queries.GetByID(r.Context(), caller, id); err != nil {
		WriteServiceError(w, r, err)
		return
	}

	var in dto.ConfirmRequest
	if err := decodeJSON(r, &in); err != nil {
		WriteServiceError(w, r, err)
		return
	}

	if err := h.Engine.Confirm(r.Context(), id, in.Code); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	h.respond(w, r, id, http.StatusOK)
}

func (h *RequestHandler) AttachWaybill(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	if !caller.Role.CanAssign() {
		forbidden(w, r)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	if err := h.Queries.AuthorizeDispatch(r.Context(), caller, id); err != nil {
		WriteServiceError(w, r, err)
		return
	}

	var in dto.CreateWaybillRequest
	if err := decodeJSON(r, &in); err != nil {
		WriteServiceError(w, r, err)
		return
	}

	wb, err := h.Engine.AttachWaybill(r.Context(), id, domain.NewWaybill{
		Carrier:       in.Carrier,
		Description:   in.Description,
		DeclaredValue: in.DeclaredValue,
		WeightKg:      in.WeightKg,
	})
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.FromWaybill(wb))
}

// act runs a transition on the request named in the path and answers with
// its fresh state.
func (h *RequestHandler) act(w http.ResponseWriter, r *http.Request, fn func(id int64) error) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if err := fn(id); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	h.respond(w, r, id, http.StatusOK)
}

func (h *RequestHandler) respond(w http.ResponseWriter, r *http.Request, id int64, status int) {
	caller, _ := CallerFrom(r.Context())

	req, err := h.Queries.GetByID(r.Context(), caller, id)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, r, status, dto.FromRequest(req))
}
