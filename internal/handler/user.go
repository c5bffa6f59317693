package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippet-hub/internal/auth"
	"github.com/sakif/snippet-hub/internal/model"
	"github.com/sakif/snippet-hub/internal/service"
)

// UserHandler serves public profile data, leaderboards and country stats.
type UserHandler struct {
	stats  *service.StatsService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(stats *service.StatsService, logger *slog.Logger) *UserHandler {
	return &UserHandler{stats: stats, logger: logger}
}

// HandleSearch serves GET /api/users?q=&limit=.
func (h *UserHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	users, err := h.stats.SearchUsers(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleProfile returns the user, the snippets the caller may see and the
// stats over those snippets.
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.stats.Profile(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HTTP: GET /api/leaderboard/snippets?limit=
func (h *UserHandler) HandleLeaderboardSnippets(w http.ResponseWriter, r *http.Request) {
	h.leaderboard(w, r, h.stats.LeaderboardBySnippetCount)
}

// HTTP: GET /api/leaderboard/reputation?limit=
func (h *UserHandler) HandleLeaderboardReputation(w http.ResponseWriter, r *http.Request) {
	h.leaderboard(w, r, h.stats.LeaderboardByReputation)
}

func (h *UserHandler) leaderboard(
	w http.ResponseWriter,
	r *http.Request,
	load func(ctx context.Context, limit int) ([]model.LeaderboardEntry, error),
) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	entries, err := load(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// countriesResponse carries the same counts twice: a map for lookups and an
// ordered list for rendering.
type countriesResponse struct {
	Counts    map[string]int64     `json:"counts"`
	Countries []model.CountryCount `json:"countries"`
}

// HandleCountries reports how many users live in each country.
//
// HTTP: GET /api/stats/countries
// RESPONSE:
//
//	{
//	  "counts": {"Peru": 2, "Unknown": 1},
//	  "countries": [{"country": "Peru", "users": 2}, {"country": "Unknown", "users": 1}]
//	}
func (h *UserHandler) HandleCountries(w http.ResponseWriter, r *http.Request) {
	counts, err := h.stats.CountByCountry(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	resp := countriesResponse{Counts: make(map[string]int64, len(counts)), Countries: counts}
	for _, c := range counts {
		resp.Counts[c.Country] = c.Users
	}
	writeJSON(w, http.StatusOK, resp)
}
