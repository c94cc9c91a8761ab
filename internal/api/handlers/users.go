package handlers

import (
	"net/http"

	"pickup-request-service/internal/api/dto"
	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/services"
)

type UserHandler struct {
	Directory *services.Directory
}

func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	var in dto.SetActiveRequest
	if err := decodeJSON(r, &in); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if in.Active == nil {
		WriteServiceError(w, r, domain.Invalid("active", "is required"))
		return
	}

	if err := h.Directory.SetActive(r.Context(), caller, id, *in.Active); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
