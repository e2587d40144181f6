// Package authn verifies the session cookie and gates routes by role.
package authn

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	resp "marketplace/internal/lib/api/response"
	"marketplace/internal/lib/jwt"
	sl "marketplace/internal/lib/logger/sl"
	"marketplace/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type ctxKey struct{}

// WithClaims attaches verified claims to ctx.
func WithClaims(ctx context.Context, c models.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func ClaimsFromContext(ctx context.Context) (models.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(models.Claims)
	return c, ok
}

// UserID returns the id of the authenticated user.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(c.ID)
	if err != nil {
		return uuid.Nil, false
	}

	return id, true
}

// Authenticate reads the token from the session cookie (or a bearer header),
// verifies it and attaches the claims. Missing tokens get "Unauthorized",
// bad or expired ones "Invalid token"; both are 401.
func Authenticate(log *slog.Logger, secret, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authn.Authenticate"

			token := tokenFromRequest(r, cookieName)
			if token == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized"))
				return
			}

			claims, err := jwt.ParseToken(token, secret)
			if err != nil {
				log.Info("rejected session token",
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					sl.Err(err),
				)

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole admits requests whose claims carry one of roles: 401 without
// claims, 403 for any other role.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized"))
				return
			}

			if !slices.Contains(roles, claims.Role) {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Forbidden"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}

	return ""
}
