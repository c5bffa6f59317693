package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippet-hub/internal/auth"
	"github.com/sakif/snippet-hub/internal/service"
)

// AdminHandler serves /api/admin. Routes sit behind auth.RequireAdmin; the
// services check again.
type AdminHandler struct {
	admin  *service.AdminService
	audit  *service.AuditService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler. Routes are mounted behind
// auth.RequireAdmin and the services check the role again.
func NewAdminHandler(admin *service.AdminService, audit *service.AuditService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, audit: audit, logger: logger}
}

// paging reads ?limit= and ?offset=.
func paging(r *http.Request) (limit, offset int, err error) {
	if limit, err = queryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(r, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// HandleListUsers pages through accounts.
//
// HTTP: GET /api/admin/users?limit=&offset=
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	users, err := h.admin.ListUsers(r.Context(), auth.IdentityFromContext(r.Context()), limit, offset)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleToggleModerator flips a user between member and moderator.
func (h *AdminHandler) HandleToggleModerator(w http.ResponseWriter, r *http.Request) {
	user, err := h.admin.ToggleModerator(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDeleteUser removes another account with everything it owns.
//
// HTTP: DELETE /api/admin/users/{id}
// RESPONSE: 204, or 403 when {id} is the admin
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteUser(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAudit lists audit entries, newest first.
//
// HTTP: GET /api/admin/audit?limit=&offset=
func (h *AdminHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	entries, err := h.audit.List(r.Context(), auth.IdentityFromContext(r.Context()), limit, offset)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
