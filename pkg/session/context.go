package session

import (
	"net/http"
	"strings"
	"time"
)

// DefaultPublicPaths are reachable without a session.
var DefaultPublicPaths = []string{
	"/",
	SignInPath,
	SignUpPath,
	"/forgot-password",
	"/reset-password",
	"/reset-password-result",
	"/complete-signup",
	"/verify-otp",
}

// State is the outcome of decoding the current cookie.
type State struct {
	Claims *Claims
	Err    error
}

func (s State) SignedIn() bool {
	return s.Claims != nil
}

// Decision is what the page should do with the current state.
type Decision struct {
	RedirectTo  string
	ClearCookie bool
}

// Resolver turns a request's cookie into a State and a Decision. It holds no
// global state; construct one per application.
type Resolver struct {
	CookieName  string
	PublicPaths []string
	Now         func() time.Time
}

func NewResolver() *Resolver {
	return &Resolver{
		CookieName:  CookieName,
		PublicPaths: DefaultPublicPaths,
		Now:         time.Now,
	}
}

// State decodes the session cookie on r.
func (res *Resolver) State(r *http.Request) State {
	var token string
	if c, err := r.Cookie(res.CookieName); err == nil {
		token = c.Value
	}

	claims, err := Decode(token, res.Now())
	if err != nil {
		return State{Err: err}
	}

	return State{Claims: &claims}
}

// Decide maps state and the current path to a redirect. Signed-out users on a
// private page go to sign-in and drop any stale cookie; signed-in users on the
// sign-in or sign-up page go to the dashboard.
func (res *Resolver) Decide(s State, path string) Decision {
	if !s.SignedIn() {
		d := Decision{ClearCookie: !IsKind(s.Err, KindMissing)}
		if !res.public(path) {
			d.RedirectTo = SignInPath
		}
		return d
	}

	if path == SignInPath || path == SignUpPath {
		return Decision{RedirectTo: DashboardPath}
	}

	return Decision{}
}

func (res *Resolver) public(path string) bool {
	for _, p := range res.PublicPaths {
		if path == p {
			return true
		}
		if p != "/" && strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Logout expires the session cookie.
func (res *Resolver) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:    res.CookieName,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
}
