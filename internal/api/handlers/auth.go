package handlers

import (
	"net/http"

	"pickup-request-service/internal/api/dto"
	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/ports"
	"pickup-request-service/internal/services"
)

// AuthHandler exposes registration and login.
type AuthHandler struct {
	Directory *services.Directory
	Sessions  ports.SessionCodec
}

// Register is open for client accounts. Any other role needs a manager
// session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in dto.RegisterRequest
	if err := decodeJSON(r, &in); err != nil {
		WriteServiceError(w, r, err)
		return
	}

	if role, err := domain.ParseRole(in.Role); err == nil && role != domain.RoleClient {
		caller, ok := CallerFrom(r.Context())
		if !ok || caller.Role != domain.RoleManager {
			forbidden(w, r)
			return
		}
	}

	id, err := h.Directory.Register(r.Context(), services.RegisterInput{
		Email:       in.Email,
		Password:    in.Password,
		DisplayName: in.DisplayName,
		Phone:       in.Phone,
		Role:        in.Role,
		Zone:        in.Zone,
		BranchID:    in.BranchID,
	})
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.RegisterResponse{UserID: id})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in dto.LoginRequest
	if err := decodeJSON(r, &in); err != nil {
		WriteServiceError(w, r, err)
		return
	}

	caller, err := h.Directory.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	token, err := h.Sessions.Issue(caller)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.LoginResponse{
		Token:    token,
		UserID:   caller.UserID,
		Role:     string(caller.Role),
		Zone:     caller.Zone,
		BranchID: caller.BranchID,
	})
}
