// Package oauth serves the Google and Facebook sign-in redirects and the
// pending social signup endpoints.
package oauth

import (
	"context"
	"fmt"
	"net/http"

	"marketplace/internal/auth"

	"github.com/go-chi/render"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL   = "https://www.googleapis.com/oauth2/v2/userinfo"
	facebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,email"
)

// Provider is one configured identity provider.
type Provider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string

	// RequireVerifiedEmail drops the email unless the provider marks it verified.
	RequireVerifiedEmail bool
}

type userInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail *bool  `json:"verified_email"`
	Name          string `json:"name"`
}

func NewGoogle(clientID, clientSecret, callbackBaseURL string) *Provider {
	return &Provider{
		Name: auth.ProviderGoogle,
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackBaseURL + "/api/auth/google/callback",
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		UserInfoURL:          googleUserInfoURL,
		RequireVerifiedEmail: true,
	}
}

func NewFacebook(clientID, clientSecret, callbackBaseURL string) *Provider {
	return &Provider{
		Name: auth.ProviderFacebook,
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackBaseURL + "/api/auth/facebook/callback",
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     facebook.Endpoint,
		},
		UserInfoURL: facebookUserInfoURL,
	}
}

// Identity exchanges the authorization code and fetches the user's profile.
func (p *Provider) Identity(ctx context.Context, code string) (auth.OAuthIdentity, error) {
	const op = "oauth.Provider.Identity"

	tok, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return auth.OAuthIdentity{}, fmt.Errorf("%s: exchange: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return auth.OAuthIdentity{}, fmt.Errorf("%s: %w", op, err)
	}

	res, err := p.Config.Client(ctx, tok).Do(req)
	if err != nil {
		return auth.OAuthIdentity{}, fmt.Errorf("%s: userinfo: %w", op, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return auth.OAuthIdentity{}, fmt.Errorf("%s: userinfo status %d", op, res.StatusCode)
	}

	var info userInfo
	if err := render.DecodeJSON(res.Body, &info); err != nil {
		return auth.OAuthIdentity{}, fmt.Errorf("%s: decode userinfo: %w", op, err)
	}

	if info.ID == "" {
		return auth.OAuthIdentity{}, fmt.Errorf("%s: userinfo without id", op)
	}

	email := info.Email
	if p.RequireVerifiedEmail && (info.VerifiedEmail == nil || !*info.VerifiedEmail) {
		email = ""
	}

	return auth.OAuthIdentity{
		Provider:       p.Name,
		ProviderUserID: info.ID,
		Email:          email,
		Name:           info.Name,
	}, nil
}
