package handlers

import (
	"net/http"
	"strings"

	"pickup-request-service/internal/api/dto"
	"pickup-request-service/internal/domain"
	"pickup-request-service/internal/services"

	"github.com/go-chi/chi/v5"
)

// ViewHandler serves the list and lookup screens.
type ViewHandler struct {
	Queries   *services.Queries
	Directory *services.Directory
}

// Track is public: a tracking code is the only credential.
func (h *ViewHandler) Track(w http.ResponseWriter, r *http.Request) {
	v, err := h.Queries.Track(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromTracking(v))
}

// ZoneRequests defaults to the pending pool; repeat ?status= to filter.
func (h *ViewHandler) ZoneRequests(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	zone := strings.TrimSpace(chi.URLParam(r, "zone"))
	if !caller.CanViewZone(zone) {
		forbidden(w, r)
		return
	}

	reqs, err := h.Queries.ListByZone(r.Context(), zone, r.URL.Query()["status"])
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromRequests(reqs))
}

func (h *ViewHandler) ZoneSummary(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	if caller.Role != domain.RoleManager && caller.Role != domain.RoleAnalyst {
		forbidden(w, r)
		return
	}

	zone := strings.TrimSpace(chi.URLParam(r, "zone"))
	counts, err := h.Queries.ZoneSummary(r.Context(), zone)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	res := dto.ZoneSummaryResponse{Zone: zone, Counts: make([]dto.StatusCountResponse, 0, len(counts))}
	for _, c := range counts {
		res.Counts = append(res.Counts, dto.StatusCountResponse{Status: string(c.Status), Count: c.Count})
	}
	writeJSON(w, r, http.StatusOK, res)
}

// CollectorRequests lists what the calling field user holds.
func (h *ViewHandler) CollectorRequests(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	if !caller.Role.IsField() {
		forbidden(w, r)
		return
	}

	reqs, err := h.Queries.ListByCollector(r.Context(), caller.UserID)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromRequests(reqs))
}

// BranchRequests is for staff. Branch staff only see their own branch.
func (h *ViewHandler) BranchRequests(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if !caller.Role.IsStaff() || (caller.Role == domain.RoleBranchStaff && caller.BranchID != id) {
		forbidden(w, r)
		return
	}

	reqs, err := h.Queries.ListByBranch(r.Context(), id, r.URL.Query()["status"])
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromRequests(reqs))
}

// Collectors lists assignment candidates. Without ?role= it lists every
// field role.
func (h *ViewHandler) Collectors(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	if !caller.Role.IsStaff() {
		forbidden(w, r)
		return
	}

	roles := r.URL.Query()["role"]
	if len(roles) == 0 {
		for _, fr := range domain.FieldRoles {
			roles = append(roles, string(fr))
		}
	}

	opts, err := h.Directory.FindCollectorsByRole(r.Context(), roles)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	res := dto.ListCollectorsResponse{Collectors: make([]dto.CollectorResponse, 0, len(opts))}
	for _, o := range opts {
		res.Collectors = append(res.Collectors, dto.CollectorResponse{ID: o.ID, DisplayName: o.DisplayName})
	}
	writeJSON(w, r, http.StatusOK, res)
}
