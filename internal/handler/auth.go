package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/snippet-hub/internal/auth"
	"github.com/sakif/snippet-hub/internal/service"
)

const oauthStateCookie = "oauth_state"

// GitHubAuth is the OAuth round trip the GitHub routes need.
// *auth.GitHubProvider implements it.
type GitHubAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves registration, login and logout.
//
//	POST /auth/register        → create account, start session
//	POST /auth/login           → check password, start session
//	POST /auth/logout          → clear session cookie
//	GET  /auth/github/login    → redirect to GitHub
//	GET  /auth/github/callback → finish GitHub login, start session
type AuthHandler struct {
	accounts *service.AuthService
	sessions *auth.Sessions
	github   GitHubAuth // nil when GitHub login is not configured
	secure   bool
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil, in which case
// the GitHub routes are not mounted.
func NewAuthHandler(
	accounts *service.AuthService,
	sessions *auth.Sessions,
	github GitHubAuth,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		github:   github,
		secure:   secure,
		logger:   logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Country  string `json:"country"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister creates an account and signs it in.
//
// HTTP: POST /auth/register
// REQUEST BODY: {"username": "alice", "password": "...", "country": "Peru"}
// RESPONSE: 201 with the user and a session cookie; 409 when the name is taken
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Username, req.Password, req.Country)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if err := h.sessions.Issue(w, user); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin checks a username and password and sets the session cookie.
//
// HTTP: POST /auth/login
// RESPONSE: 200 with the user, or 401 with the same message for an unknown
// user and a wrong password
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if err := h.sessions.Issue(w, user); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleLogout clears the cookie. The token stays valid until it expires,
// but without the cookie the browser no longer sends it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleGitHubLogin redirects to GitHub with a random state that is also
// stored in a short-lived cookie. The callback rejects any state that does
// not match the cookie.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback finishes the OAuth dance.
//
// FLOW:
//  1. compare the state query parameter with the oauth_state cookie
//  2. exchange the code for the GitHub profile
//  3. find or create the linked account and issue the session cookie
//  4. redirect to "/"
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	user, err := h.accounts.LoginWithGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if err := h.sessions.Issue(w, user); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	h.logger.Info("github user signed in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
