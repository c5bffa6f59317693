package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-hub/internal/auth"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/service"
)

// AccountHandler serves /api/me, the caller's own account.
type AccountHandler struct {
	accounts *service.AuthService
	sessions *auth.Sessions
	logger   *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(accounts *service.AuthService, sessions *auth.Sessions, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, sessions: sessions, logger: logger}
}

// HandleMe returns the signed-in account.
//
// HTTP: GET /api/me
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Me(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdate applies a partial settings update. Omitted fields are left
// unchanged.
func (h *AccountHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var settings model.UserSettings
	if err := decodeJSON(w, r, &settings); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	user, err := h.accounts.UpdateSettings(r.Context(), auth.IdentityFromContext(r.Context()), settings)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDelete deletes the caller's account and ends the session.
func (h *AccountHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.DeleteAccount(r.Context(), auth.IdentityFromContext(r.Context())); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	h.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
