// Package cookie writes and clears the session cookies the API hands out.
package cookie

import (
	"net/http"
	"time"
)

const (
	DefaultName = "auth_token"

	// OAuthSessionName carries the id of a pending social signup.
	OAuthSessionName = "oauth_session"
	// OAuthStateName carries the CSRF state of an in-flight provider redirect.
	OAuthStateName = "oauth_state"
)

type Settings struct {
	Name   string
	Domain string
	Secure bool
}

// SessionName is the configured session cookie name.
func (s Settings) SessionName() string {
	if s.Name == "" {
		return DefaultName
	}
	return s.Name
}

// SetSession stores the session token. The cookie is not HttpOnly: the
// frontend decodes it to render the signed-in user.
func (s Settings) SetSession(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.SessionName(),
		Value:    token,
		Path:     "/",
		Domain:   s.Domain,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s Settings) ClearSession(w http.ResponseWriter) {
	s.clear(w, s.SessionName(), "/")
}

// Session returns the session token from the request, if any.
func (s Settings) Session(r *http.Request) (string, bool) {
	c, err := r.Cookie(s.SessionName())
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// SetHTTPOnly stores a server-only value such as the OAuth state or pending
// session id.
func (s Settings) SetHTTPOnly(w http.ResponseWriter, name, value, path string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   s.Domain,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		Secure:   s.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s Settings) Clear(w http.ResponseWriter, name, path string) {
	s.clear(w, name, path)
}

func (s Settings) clear(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Domain:   s.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Value reads a named cookie.
func Value(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
