package session

import (
	"net/http"
	"strings"
)

// GateConfig lists the prefixes the edge gate guards.
type GateConfig struct {
	CookieName string
	Protected  []string
	EntryPages []string
}

func DefaultGateConfig() GateConfig {
	return GateConfig{
		CookieName: CookieName,
		Protected:  []string{"/brand", "/influencer", "/manager", DashboardPath},
		EntryPages: []string{SignInPath, SignUpPath},
	}
}

// Gate redirects on cookie presence only: protected prefixes without a cookie
// go to /signin, entry pages with one go to /dashboard.
func Gate(cfg GateConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			c, err := r.Cookie(cfg.CookieName)
			hasSession := err == nil && c.Value != ""

			switch {
			case !hasSession && matchPrefix(path, cfg.Protected):
				http.Redirect(w, r, SignInPath, http.StatusTemporaryRedirect)
				return
			case hasSession && matchExact(path, cfg.EntryPages):
				http.Redirect(w, r, DashboardPath, http.StatusTemporaryRedirect)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func matchPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func matchExact(path string, pages []string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, p := range pages {
		if path == p {
			return true
		}
	}
	return false
}
