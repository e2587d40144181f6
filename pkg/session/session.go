// Package session is the client side of the auth_token cookie: an unverified
// decode with expiry check, the redirect decision made from it, and an edge
// gate that only looks at cookie presence.
//
// Nothing here verifies signatures. The API re-verifies every request.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketplace/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "auth_token"

const (
	SignInPath    = "/signin"
	SignUpPath    = "/signup"
	DashboardPath = "/dashboard"
)

type ErrorKind string

const (
	KindMissing   ErrorKind = "missing"
	KindMalformed ErrorKind = "malformed"
	KindExpired   ErrorKind = "expired"
)

// AuthError says why a token cannot be used.
type AuthError struct {
	Kind ErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "session: " + string(e.Kind)
	}
	return fmt.Sprintf("session: %s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an AuthError of kind k.
func IsKind(err error, k ErrorKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == k
}

type Claims struct {
	ID        string
	Role      models.Role
	Email     string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	ID       string      `json:"id"`
	Role     models.Role `json:"role"`
	Email    string      `json:"email"`
	Username string      `json:"username"`
	jwt.RegisteredClaims
}

// Decode reads the claims of token without checking its signature and rejects
// it when the shape is wrong or now is at or past its expiry.
func Decode(token string, now time.Time) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, &AuthError{Kind: KindMissing}
	}

	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return Claims{}, &AuthError{Kind: KindMalformed, Err: err}
	}

	if tc.ID == "" {
		return Claims{}, &AuthError{Kind: KindMalformed, Err: errors.New("missing id claim")}
	}
	if !tc.Role.Valid() {
		return Claims{}, &AuthError{Kind: KindMalformed, Err: fmt.Errorf("unknown role %q", tc.Role)}
	}
	if tc.ExpiresAt == nil {
		return Claims{}, &AuthError{Kind: KindMalformed, Err: errors.New("missing exp claim")}
	}

	exp := tc.ExpiresAt.Time.UTC()
	if !now.Before(exp) {
		return Claims{}, &AuthError{Kind: KindExpired}
	}

	c := Claims{
		ID:        tc.ID,
		Role:      tc.Role,
		Email:     tc.Email,
		Username:  tc.Username,
		ExpiresAt: exp,
	}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.Time.UTC()
	}

	return c, nil
}

// TokenFromCookieHeader extracts the named cookie from a raw Cookie header.
func TokenFromCookieHeader(header, name string) string {
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return ""
	}

	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}

	return ""
}
