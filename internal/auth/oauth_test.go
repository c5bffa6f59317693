package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGitHub serves the token and /user endpoints of the OAuth flow.
func fakeGitHub(t *testing.T, userStatus int, userBody string) *GitHubProvider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"bad_verification_code"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userStatus)
		_, _ = w.Write([]byte(userBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewGitHubProvider("client-id", "client-secret", "http://localhost/auth/github/callback")
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/login/oauth/authorize",
		TokenURL: srv.URL + "/login/oauth/access_token",
	}
	p.userURL = srv.URL + "/user"
	return p
}

func TestAuthURL_CarriesState(t *testing.T) {
	p := NewGitHubProvider("client-id", "secret", "http://localhost/cb")

	u, err := url.Parse(p.AuthURL("state-123"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.String(), "https://github.com/login/oauth/authorize"))
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
	assert.Equal(t, "http://localhost/cb", u.Query().Get("redirect_uri"))
}

func TestExchange(t *testing.T) {
	p := fakeGitHub(t, http.StatusOK, `{"id":4242,"login":"octocat","name":"ignored"}`)

	gh, err := p.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.EqualValues(t, 4242, gh.ID)
	assert.Equal(t, "octocat", gh.Login)
}

func TestExchange_Failures(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		status int
		body   string
	}{
		{"bad code", "bad-code", http.StatusOK, `{"id":1,"login":"x"}`},
		{"user api error", "good-code", http.StatusUnauthorized, `{"message":"Bad credentials"}`},
		{"missing id", "good-code", http.StatusOK, `{"login":"x"}`},
		{"not json", "good-code", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fakeGitHub(t, tt.status, tt.body)
			_, err := p.Exchange(context.Background(), tt.code)
			assert.Error(t, err)
		})
	}
}
