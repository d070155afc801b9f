package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

// ErrNoIdentity is returned when the provider account has no usable identity:
// no e-mail, or one the provider has not verified.
var ErrNoIdentity = errors.New("provider account has no verified e-mail")

// IdentityProvider is the external OAuth session provider.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Identity(ctx context.Context, code string) (string, error)
}

// OAuthProvider runs the authorization-code flow and resolves the account
// e-mail, which becomes the user's identity.
type OAuthProvider struct {
	cfg         *oauth2.Config
	userInfoURL string
}

// NewOAuthProvider builds a provider from endpoint URLs and client credentials.
func NewOAuthProvider(clientID, clientSecret, redirectURL, authURL, tokenURL, userInfoURL string) *OAuthProvider {
	return &OAuthProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"identify", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		userInfoURL: userInfoURL,
	}
}

// AuthCodeURL returns the provider consent URL carrying state.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

type providerUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

// Identity exchanges code for an access token and fetches the account e-mail.
// Unverified addresses are refused since anyone can claim them.
func (p *OAuthProvider) Identity(ctx context.Context, code string) (string, error) {
	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("build userinfo request: %w", err)
	}
	resp, err := p.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("userinfo status %d: %s", resp.StatusCode, body)
	}

	var u providerUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return "", fmt.Errorf("decode userinfo: %w", err)
	}
	if u.Email == "" || !u.Verified {
		return "", ErrNoIdentity
	}
	return u.Email, nil
}
