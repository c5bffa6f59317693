package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/auth"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/service"
)

// SnippetHandler serves /api/snippets.
type SnippetHandler struct {
	snippets *service.SnippetService
	votes    *service.VoteService
	logger   *slog.Logger
}

// NewSnippetHandler creates a SnippetHandler.
func NewSnippetHandler(snippets *service.SnippetService, votes *service.VoteService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, votes: votes, logger: logger}
}

type visibilityResponse struct {
	ID       string `json:"id"`
	IsPublic bool   `json:"isPublic"`
}

// HandleListRecent returns the newest public snippets. ?limit= is optional.
func (h *SnippetHandler) HandleListRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	snippets, err := h.snippets.ListRecentPublic(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snippets)
}

// HandleCreate stores a snippet for the signed-in user.
//
// HTTP: POST /api/snippets
// REQUEST BODY: {"title": "fib", "content": "...", "language": "go", "isPublic": true}
// RESPONSE: 201 with the snippet
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.SnippetInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	snippet, err := h.snippets.CreateSnippet(r.Context(), auth.IdentityFromContext(r.Context()), in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snippet)
}

// HandleGet returns one snippet with its score and the caller's vote.
//
// HTTP: GET /api/snippets/{id}
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.snippets.ViewSnippet(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleUpdate replaces a snippet. Owner only.
//
// HTTP: PUT /api/snippets/{id}
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in model.SnippetInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	snippet, err := h.snippets.EditSnippet(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleDelete removes a snippet. Owner or staff.
//
// HTTP: DELETE /api/snippets/{id}
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.snippets.DeleteSnippet(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleToggleVisibility flips public/private.
//
// HTTP: POST /api/snippets/{id}/visibility
// RESPONSE: {"id": "...", "isPublic": false}
func (h *SnippetHandler) HandleToggleVisibility(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	public, err := h.snippets.ToggleVisibility(r.Context(), auth.IdentityFromContext(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, visibilityResponse{ID: id, IsPublic: public})
}

// HandleVote toggles the caller's vote. {direction} is "up" or "down".
func (h *SnippetHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	dir, err := model.ParseDirection(chi.URLParam(r, "direction"))
	if err != nil {
		writeError(w, h.logger, r, apperror.ValidationFailed("direction", "direction must be up or down"))
		return
	}

	res, err := h.votes.CastVote(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), dir)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
