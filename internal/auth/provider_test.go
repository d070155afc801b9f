package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProviderServer serves a token endpoint and a userinfo endpoint
// answering with body.
func newProviderServer(t *testing.T, body string) *OAuthProvider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/users/@me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewOAuthProvider("id", "secret", "http://localhost/cb", srv.URL+"/authorize", srv.URL+"/token", srv.URL+"/users/@me")
}

func TestIdentity_ShouldReturnVerifiedEmail(t *testing.T) {
	p := newProviderServer(t, `{"id":"1","username":"u","email":"u1@example.com","verified":true}`)

	identity, err := p.Identity(context.Background(), "code")

	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", identity)
}

func TestIdentity_ShouldRejectUnusableAccounts(t *testing.T) {
	for _, tc := range []struct {
		description string
		body        string
	}{
		{description: "unverified e-mail", body: `{"id":"1","email":"victim@example.com","verified":false}`},
		{description: "verified flag missing", body: `{"id":"1","email":"victim@example.com"}`},
		{description: "no e-mail", body: `{"id":"1","verified":true}`},
	} {
		t.Run(tc.description, func(t *testing.T) {
			p := newProviderServer(t, tc.body)

			identity, err := p.Identity(context.Background(), "code")

			assert.ErrorIs(t, err, ErrNoIdentity)
			assert.Empty(t, identity)
		})
	}
}

func TestAuthCodeURL_ShouldCarryState(t *testing.T) {
	p := NewOAuthProvider("id", "secret", "http://localhost/cb", "https://provider.example/authorize", "https://provider.example/token", "")

	assert.Contains(t, p.AuthCodeURL("s1"), "state=s1")
}
